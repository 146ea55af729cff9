package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/qna/internal/client"
	"github.com/alfredjeanlab/qna/internal/identity"
	"github.com/alfredjeanlab/qna/internal/model"
)

// viewerSession resolves this machine's identity against the server,
// signing in anonymously and saving the token on first use, and asks the
// server whether it is the admin.
func viewerSession(ctx context.Context, logger *slog.Logger) (model.ViewerSession, error) {
	provider := client.NewIdentityProvider(qnaClient, signer, saveActiveToken)
	id, err := identity.NewResolver(provider, logger).Resolve(ctx)
	if err != nil {
		return model.ViewerSession{}, err
	}
	who, err := qnaClient.Whoami(ctx)
	if err != nil {
		return model.ViewerSession{}, fmt.Errorf("whoami: %w", err)
	}
	return model.ViewerSession{Identity: id, IsAdmin: who.IsAdmin}, nil
}
