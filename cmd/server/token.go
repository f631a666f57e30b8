package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/procurement-engine/internal/container"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
	httpserver "github.com/garyjia/procurement-engine/internal/interfaces/http"
)

// tokenRequest names the actor an operator issues a bearer token for
type tokenRequest struct {
	ActorID string
	Name    string
	Groups  string // comma separated approver group ids
}

// issueToken signs a token with the server secret and writes it to w on its own line
func issueToken(cfg container.ServerConfig, req tokenRequest, w io.Writer) (time.Time, error) {
	if req.ActorID == "" {
		return time.Time{}, fmt.Errorf("actor id is required")
	}
	groups, err := parseGroupIDs(req.Groups)
	if err != nil {
		return time.Time{}, err
	}

	auth, err := httpserver.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to create authenticator: %w", err)
	}
	token, exp, err := auth.GenerateToken(entity.Actor{ID: req.ActorID, Name: req.Name, GroupIDs: groups})
	if err != nil {
		return time.Time{}, err
	}
	if _, err := fmt.Fprintln(w, token); err != nil {
		return time.Time{}, fmt.Errorf("failed to write token: %w", err)
	}
	return exp, nil
}

func parseGroupIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid group id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
