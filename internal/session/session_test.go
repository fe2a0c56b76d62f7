package session

import (
	"context"
	"errors"
	"os/user"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_FromWhoAmI(t *testing.T) {
	r := Resolver{
		WhoAmI: func(context.Context) (string, error) {
			return "alice    pts/0        2026-08-25 10:15 (10.0.0.5)\n", nil
		},
		Getenv: func(string) string { return "root" },
	}

	assert.Equal(t, "alice", r.User(context.Background()))
}

func TestUser_FallsBackToSudoUser(t *testing.T) {
	r := Resolver{
		WhoAmI: func(context.Context) (string, error) { return "", nil },
		Getenv: func(key string) string {
			if key == "SUDO_USER" {
				return "bob"
			}
			return ""
		},
	}

	assert.Equal(t, "bob", r.User(context.Background()))
}

func TestUser_FallsBackToProcessUser(t *testing.T) {
	r := Resolver{
		WhoAmI:      func(context.Context) (string, error) { return "", errors.New("no tty") },
		Getenv:      func(string) string { return "" },
		CurrentUser: func() (*user.User, error) { return &user.User{Username: "svc-deploy"}, nil },
	}

	assert.Equal(t, "svc-deploy", r.User(context.Background()))
}

func TestUser_NeverEmpty(t *testing.T) {
	r := Resolver{
		WhoAmI:      func(context.Context) (string, error) { return "", errors.New("no tty") },
		Getenv:      func(string) string { return "" },
		CurrentUser: func() (*user.User, error) { return nil, errors.New("no user db") },
	}

	assert.Equal(t, "unknown", r.User(context.Background()))
}

func TestUser_RealCollaborators(t *testing.T) {
	// Zero value must resolve something in any environment.
	assert.NotEmpty(t, Resolver{}.User(context.Background()))
}
