package clients_test

import (
	"testing"

	"github.com/jrsteele09/mcp-auth-gateway/clients"
	"github.com/stretchr/testify/require"
)

const testRedirectURI = "http://localhost:3000/callback"

func TestRegister_PublicClient(t *testing.T) {
	repo := clients.NewInMemoryRepo()

	resp, err := clients.Register(repo, clients.RegistrationRequest{
		RedirectURIs: []string{testRedirectURI},
		ClientName:   "Desktop Agent",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ClientID)
	require.Empty(t, resp.ClientSecret)
	require.Equal(t, clients.AuthMethodNone, resp.TokenEndpointAuthMethod)

	stored, err := repo.Get(resp.ClientID)
	require.NoError(t, err)
	require.True(t, stored.IsPublic())
	require.True(t, stored.HasRedirectURI(testRedirectURI))
	require.Equal(t, "Desktop Agent", stored.DisplayName())
}

func TestRegister_ConfidentialClient(t *testing.T) {
	repo := clients.NewInMemoryRepo()

	resp, err := clients.Register(repo, clients.RegistrationRequest{
		RedirectURIs:            []string{"https://app.example.com/cb"},
		TokenEndpointAuthMethod: clients.AuthMethodClientSecretPost,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ClientSecret)

	stored, err := repo.Get(resp.ClientID)
	require.NoError(t, err)
	require.False(t, stored.IsPublic())
	require.True(t, stored.CheckSecret(resp.ClientSecret))
	require.False(t, stored.CheckSecret("wrong"))
}

func TestRegister_RejectsBadMetadata(t *testing.T) {
	repo := clients.NewInMemoryRepo()

	tests := []struct {
		name string
		req  clients.RegistrationRequest
	}{
		{"no redirect", clients.RegistrationRequest{}},
		{"plain http", clients.RegistrationRequest{RedirectURIs: []string{"http://evil.example.com/cb"}}},
		{"fragment", clients.RegistrationRequest{RedirectURIs: []string{"https://app.example.com/cb#x"}}},
		{"relative", clients.RegistrationRequest{RedirectURIs: []string{"/cb"}}},
		{"javascript", clients.RegistrationRequest{RedirectURIs: []string{"javascript:alert(1)"}}},
		{"auth method", clients.RegistrationRequest{RedirectURIs: []string{testRedirectURI}, TokenEndpointAuthMethod: "private_key_jwt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := clients.Register(repo, tt.req)
			require.ErrorIs(t, err, clients.ErrInvalidMetadata)
		})
	}
}

func TestParseStaticClients(t *testing.T) {
	list, err := clients.ParseStaticClients("cli|http://localhost:8000/cb,http://127.0.0.1:8000/cb|CLI; web|https://web.example.com/cb|Web|s3cret")
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.Equal(t, "cli", list[0].ID)
	require.Equal(t, "CLI", list[0].Name)
	require.Len(t, list[0].RedirectURIs, 2)
	require.True(t, list[0].IsPublic())

	require.Equal(t, "web", list[1].ID)
	require.False(t, list[1].IsPublic())
	require.True(t, list[1].CheckSecret("s3cret"))

	_, err = clients.ParseStaticClients("missing-redirects")
	require.ErrorIs(t, err, clients.ErrInvalidMetadata)
}

func TestInMemoryRepo_GetListDelete(t *testing.T) {
	repo := clients.NewInMemoryRepo()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Upsert(&clients.Client{ID: id, RedirectURIs: []string{testRedirectURI}}))
	}

	list, err := repo.List(0, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].ID)
	require.Equal(t, "b", list[1].ID)

	list, err = repo.List(2, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete("a"))
	_, err = repo.Get("a")
	require.ErrorIs(t, err, clients.ErrClientNotFound)
}
