package tools_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/jrsteele09/mcp-auth-gateway/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend exploded")

type fakeDatabase struct {
	tables   []tools.Table
	rows     []map[string]any
	affected int64
	err      error
	queries  []string
	executes []string
}

func (f *fakeDatabase) ListTables(context.Context) ([]tools.Table, error) {
	return f.tables, f.err
}

func (f *fakeDatabase) Query(_ context.Context, stmt string) ([]map[string]any, error) {
	f.queries = append(f.queries, stmt)
	return f.rows, f.err
}

func (f *fakeDatabase) Execute(_ context.Context, stmt string) (int64, error) {
	f.executes = append(f.executes, stmt)
	return f.affected, f.err
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []tools.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m tools.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeRepos struct {
	token string
	query string
	limit int
	repos []tools.Repository
}

func (f *fakeRepos) SearchRepositories(_ context.Context, token, query string, limit int) ([]tools.Repository, error) {
	f.token, f.query, f.limit = token, query, limit
	return f.repos, nil
}

type fakeWeb struct {
	count   int
	results []tools.SearchResult
	err     error
}

func (f *fakeWeb) Search(_ context.Context, _ string, count int) ([]tools.SearchResult, error) {
	f.count = count
	return f.results, f.err
}

type testFixture struct {
	box    *tools.Toolbox
	db     *fakeDatabase
	mailer *fakeMailer
	repos  *fakeRepos
	web    *fakeWeb
	calls  map[string][]bool
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		db:     &fakeDatabase{},
		mailer: &fakeMailer{},
		repos:  &fakeRepos{},
		web:    &fakeWeb{},
		calls:  map[string][]bool{},
	}
	f.box = tools.New(tools.NewAllowList("admin"),
		tools.WithDatabase(f.db),
		tools.WithMailer(f.mailer),
		tools.WithRepoSearch(f.repos),
		tools.WithWebSearch(f.web),
		tools.WithCallObserver(func(tool string, ok bool) { f.calls[tool] = append(f.calls[tool], ok) }),
	)
	return f
}

func asUser(login string, provider providers.Name) context.Context {
	return tools.WithIdentity(context.Background(), &providers.Identity{
		Provider:    provider,
		Login:       login,
		AccessToken: "upstream-" + login,
	})
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}
