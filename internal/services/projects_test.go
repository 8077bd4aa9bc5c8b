package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject_DuplicateName(t *testing.T) {
	f := newFixture(t)
	svc := NewProjectService(f.db)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, ProjectCreate{Name: "Website", Description: ptr("marketing")})
	require.NoError(t, err)
	assert.NotZero(t, project.ID)

	_, err = svc.CreateProject(ctx, ProjectCreate{Name: "Website"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateProject(ctx, ProjectCreate{Name: " "})
	assert.True(t, IsValidation(err))

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
	assert.Equal(t, "Launch", projects[0].Name)
}

func TestUsers_CreateAndList(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.db)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, UserCreate{Name: "Bob", ExternalRef: ptr("U123")})
	require.NoError(t, err)
	assert.Equal(t, "U123", *user.ExternalRef)

	_, err = svc.CreateUser(ctx, UserCreate{})
	assert.True(t, IsValidation(err))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []string{"Alice", "Bob"}, []string{users[0].Name, users[1].Name})
}
