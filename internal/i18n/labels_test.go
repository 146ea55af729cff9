package i18n

import (
	"reflect"
	"testing"
)

func TestParseLang(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want Lang
	}{
		{"en", English},
		{"ko", Korean},
		{"", Korean},
		{"EN", Korean},
		{"en-US", Korean},
		{"fr", Korean},
	} {
		if got := ParseLang(tc.raw); got != tc.want {
			t.Errorf("ParseLang(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestFor_AllLabelsPopulated(t *testing.T) {
	for _, lang := range []Lang{Korean, English} {
		v := reflect.ValueOf(For(lang))
		for i := 0; i < v.NumField(); i++ {
			if v.Field(i).String() == "" {
				t.Errorf("%s: label %s is empty", lang, v.Type().Field(i).Name)
			}
		}
	}
}

func TestFor_UnknownFallsBack(t *testing.T) {
	if got := For(Lang("de")); got != For(Korean) {
		t.Errorf("For(de) did not fall back to Korean labels")
	}
	if got := For(English).NoAnswer; got != "No answer yet." {
		t.Errorf("English NoAnswer = %q", got)
	}
}
