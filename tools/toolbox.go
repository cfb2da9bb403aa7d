package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

const (
	ToolListTables      = "list_tables"
	ToolQueryDatabase   = "query_database"
	ToolExecuteDatabase = "execute_database"
	ToolSearchRepos     = "search_repositories"
	ToolSendEmail       = "send_email"
	ToolWebSearch       = "web_search"
	defaultResultCount  = 10
	maxResultCount      = 50
)

// CallObserver is told the outcome of every tool call.
type CallObserver func(tool string, ok bool)

// Toolbox owns the tool backends. Tools whose backend is not configured are
// not registered.
type Toolbox struct {
	authz    Authorizer
	db       Database
	mailer   Mailer
	repos    RepoSearcher
	web      WebSearcher
	observer CallObserver
}

type Option func(*Toolbox)

func WithDatabase(db Database) Option        { return func(t *Toolbox) { t.db = db } }
func WithMailer(m Mailer) Option             { return func(t *Toolbox) { t.mailer = m } }
func WithRepoSearch(r RepoSearcher) Option   { return func(t *Toolbox) { t.repos = r } }
func WithWebSearch(w WebSearcher) Option     { return func(t *Toolbox) { t.web = w } }
func WithCallObserver(o CallObserver) Option { return func(t *Toolbox) { t.observer = o } }

func New(authz Authorizer, opts ...Option) *Toolbox {
	t := &Toolbox{authz: authz}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds the configured tools to s and returns their names.
func (t *Toolbox) Register(s *server.MCPServer) []string {
	var names []string
	add := func(tool mcp.Tool, h server.ToolHandlerFunc) {
		s.AddTool(tool, t.observed(tool.Name, h))
		names = append(names, tool.Name)
	}

	if t.db != nil {
		add(mcp.NewTool(ToolListTables,
			mcp.WithDescription("List the tables in the database"),
		), t.ListTables)
		add(mcp.NewTool(ToolQueryDatabase,
			mcp.WithDescription("Run a read-only SQL query (SELECT, WITH, EXPLAIN)"),
			mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL statement to run")),
		), t.QueryDatabase)
		add(mcp.NewTool(ToolExecuteDatabase,
			mcp.WithDescription("Run a SQL statement that modifies data. Restricted to privileged users"),
			mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL statement to run")),
		), t.ExecuteDatabase)
	}
	if t.repos != nil {
		add(mcp.NewTool(ToolSearchRepos,
			mcp.WithDescription("Search GitHub repositories as the signed in GitHub user"),
			mcp.WithString("query", mcp.Required(), mcp.Description("GitHub search query")),
			mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
		), t.SearchRepositories)
	}
	if t.mailer != nil {
		add(mcp.NewTool(ToolSendEmail,
			mcp.WithDescription("Send a plain text email. Restricted to privileged users"),
			mcp.WithString("to", mcp.Required(), mcp.Description("Comma separated recipients")),
			mcp.WithString("subject", mcp.Required(), mcp.Description("Subject line")),
			mcp.WithString("body", mcp.Required(), mcp.Description("Plain text body")),
		), t.SendEmail)
	}
	if t.web != nil {
		add(mcp.NewTool(ToolWebSearch,
			mcp.WithDescription("Search the web"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
			mcp.WithNumber("count", mcp.Description("Maximum results (default 10)")),
		), t.WebSearch)
	}
	return names
}

func (t *Toolbox) observed(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := h(ctx, req)
		ok := err == nil && res != nil && !res.IsError
		if t.observer != nil {
			t.observer(name, ok)
		}
		ev := log.Debug()
		if !ok {
			ev = log.Info()
		}
		login := ""
		if id := IdentityFromContext(ctx); id != nil {
			login = id.Login
		}
		ev.Str("tool", name).Str("login", login).Bool("ok", ok).Msg("tool call")
		return res, err
	}
}

// caller returns the authorized identity, or a tool error result.
func (t *Toolbox) caller(ctx context.Context, c Capability) (*providers.Identity, *mcp.CallToolResult) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return nil, mcp.NewToolResultError("Not authenticated")
	}
	if !t.authorized(id, c) {
		return nil, mcp.NewToolResultError(fmt.Sprintf("User %s is not allowed to use %s operations", id.Login, c))
	}
	return id, nil
}

func (t *Toolbox) authorized(id *providers.Identity, c Capability) bool {
	if t.authz == nil {
		return false
	}
	if pa, ok := t.authz.(ProviderAuthorizer); ok {
		return pa.IsAuthorizedFor(id.Provider, id.Login, c)
	}
	return t.authz.IsAuthorized(id.Login, c)
}

func (t *Toolbox) ListTables(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, denied := t.caller(ctx, CapabilityRead); denied != nil {
		return denied, nil
	}
	tables, err := t.db.ListTables(ctx)
	if err != nil {
		return toolFailure("Failed to list tables", err), nil
	}
	return jsonResult(tables)
}

func (t *Toolbox) QueryDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, denied := t.caller(ctx, CapabilityRead); denied != nil {
		return denied, nil
	}
	stmt, err := req.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError("sql argument is required"), nil
	}
	kind, err := ClassifySQL(stmt)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if kind != StatementRead {
		return mcp.NewToolResultError("Only read statements are allowed; use execute_database for writes"), nil
	}
	rows, err := t.db.Query(ctx, stmt)
	if err != nil {
		return toolFailure("Query failed", err), nil
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return jsonResult(rows)
}

func (t *Toolbox) ExecuteDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, denied := t.caller(ctx, CapabilityWrite); denied != nil {
		return denied, nil
	}
	stmt, err := req.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError("sql argument is required"), nil
	}
	if _, err := ClassifySQL(stmt); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	affected, err := t.db.Execute(ctx, stmt)
	if err != nil {
		return toolFailure("Statement failed", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d rows affected", affected)), nil
}

func (t *Toolbox) SearchRepositories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, denied := t.caller(ctx, CapabilityRead)
	if denied != nil {
		return denied, nil
	}
	if id.Provider != providers.GitHub || id.AccessToken == "" {
		return mcp.NewToolResultError("Repository search requires signing in with GitHub"), nil
	}
	query, err := req.RequireString("query")
	if err != nil || query == "" {
		return mcp.NewToolResultError("query argument is required"), nil
	}
	repos, err := t.repos.SearchRepositories(ctx, id.AccessToken, query, clampCount(req.GetInt("limit", defaultResultCount)))
	if err != nil {
		return toolFailure("Repository search failed", err), nil
	}
	if repos == nil {
		repos = []Repository{}
	}
	return jsonResult(repos)
}

func (t *Toolbox) SendEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, denied := t.caller(ctx, CapabilityMail); denied != nil {
		return denied, nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError("to argument is required"), nil
	}
	recipients, err := ParseRecipients(to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	subject, err := req.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError("subject argument is required"), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError("body argument is required"), nil
	}

	if err := t.mailer.Send(ctx, Message{To: recipients, Subject: subject, Body: body}); err != nil {
		return toolFailure("Failed to send email", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Email sent to %d recipient(s)", len(recipients))), nil
}

func (t *Toolbox) WebSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, denied := t.caller(ctx, CapabilityRead); denied != nil {
		return denied, nil
	}
	query, err := req.RequireString("query")
	if err != nil || query == "" {
		return mcp.NewToolResultError("query argument is required"), nil
	}
	results, err := t.web.Search(ctx, query, clampCount(req.GetInt("count", defaultResultCount)))
	if err != nil {
		return toolFailure("Web search failed", err), nil
	}
	if results == nil {
		results = []SearchResult{}
	}
	return jsonResult(results)
}

// toolFailure logs the cause and returns a message without backend detail.
func toolFailure(msg string, err error) *mcp.CallToolResult {
	log.Err(err).Msg(msg)
	if errors.Is(err, context.DeadlineExceeded) {
		return mcp.NewToolResultError(msg + ": timed out")
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func clampCount(n int) int {
	switch {
	case n <= 0:
		return defaultResultCount
	case n > maxResultCount:
		return maxResultCount
	}
	return n
}
