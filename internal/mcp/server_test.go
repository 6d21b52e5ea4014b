package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/mcp"
	"github.com/rcos/rcos-io/internal/testserver"
	"github.com/stretchr/testify/require"
)

// bearerTransport adds an Authorization header to every request.
type bearerTransport struct {
	token string
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(req)
}

func connect(t *testing.T, ts *testserver.TestServer, userID string) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: testserver.Token(userID)}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any, out any) *sdkmcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s", name)
	if out != nil && !result.IsError {
		data, err := json.Marshal(result.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return result
}

func errorText(t *testing.T, result *sdkmcp.CallToolResult) string {
	t.Helper()
	require.True(t, result.IsError)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_ListsTools(t *testing.T) {
	ts := testserver.New(t, attendance.Options{})
	session := connect(t, ts, testserver.Coordinator)

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{
		"open_attendance", "close_attendance", "attendance_status",
		"record_attendance", "meeting_attendance", "search_users",
	}, names)
}

func TestServer_AttendanceTools(t *testing.T) {
	ts := testserver.New(t, attendance.Options{})
	host := connect(t, ts, testserver.Host)
	alice := connect(t, ts, testserver.Alice)

	var opened struct {
		Code      string    `json:"code"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	res := callTool(t, host, "open_attendance", map[string]any{"meeting_id": testserver.InProgressMeeting, "ttl_minutes": 20}, &opened)
	require.False(t, res.IsError)
	require.True(t, attendance.ValidCode(opened.Code))

	var status attendance.RoomStatus
	callTool(t, alice, "attendance_status", map[string]any{"meeting_id": testserver.InProgressMeeting}, &status)
	require.True(t, status.Open)
	require.Empty(t, status.Code)

	res = callTool(t, alice, "open_attendance", map[string]any{"meeting_id": testserver.InProgressMeeting}, nil)
	require.Contains(t, errorText(t, res), "permission")

	var recorded attendance.SubmitResult
	callTool(t, host, "record_attendance", map[string]any{
		"meeting_id": testserver.InProgressMeeting, "code": opened.Code, "subject": "alice@rpi.edu",
	}, &recorded)
	require.Equal(t, testserver.Alice, recorded.User.ID)
	require.True(t, recorded.Record.IsManuallyAdded)

	res = callTool(t, host, "record_attendance", map[string]any{
		"meeting_id": testserver.InProgressMeeting, "code": opened.Code, "subject": "ghost",
	}, nil)
	require.Equal(t, "No single user matches that name, email or RCS ID.", errorText(t, res))

	var overview attendance.MeetingAttendance
	callTool(t, host, "meeting_attendance", map[string]any{"meeting_id": testserver.InProgressMeeting}, &overview)
	require.Len(t, overview.Attendees, 1)
	require.Len(t, overview.Absent, 2)

	var found struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
	}
	callTool(t, host, "search_users", map[string]any{"meeting_id": testserver.InProgressMeeting, "query": "bob"}, &found)
	require.Len(t, found.Users, 1)
	require.Equal(t, testserver.Bob, found.Users[0].ID)

	// Members cannot browse the directory.
	res = callTool(t, alice, "search_users", map[string]any{"meeting_id": testserver.InProgressMeeting, "query": "bob"}, nil)
	require.Equal(t, "You do not have permission to manage attendance for this meeting.", errorText(t, res))

	var closed struct {
		Redirect string `json:"redirect"`
	}
	callTool(t, host, "close_attendance", map[string]any{"meeting_id": testserver.InProgressMeeting, "code": opened.Code}, &closed)
	require.Equal(t, "/meetings/m1", closed.Redirect)

	callTool(t, alice, "attendance_status", map[string]any{"meeting_id": testserver.InProgressMeeting}, &status)
	require.False(t, status.Open)
}

func TestServer_RejectsUnknownToken(t *testing.T) {
	ts := testserver.New(t, attendance.Options{})
	session := connect(t, ts, "nobody")

	_, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      "attendance_status",
		Arguments: map[string]any{"meeting_id": testserver.InProgressMeeting},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")
}

type brokenResolver struct{}

func (brokenResolver) ResolveUser(context.Context, string) (string, error) {
	return "", errors.New("database is locked")
}

func TestServer_ResolverFailureIsInternal(t *testing.T) {
	server := mcp.NewServer(mcp.Config{Resolver: brokenResolver{}})
	ts := httptest.NewServer(mcp.NewHTTPHandler(server))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.URL,
		HTTPClient: &http.Client{Transport: bearerTransport{token: "any"}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	_, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "attendance_status",
		Arguments: map[string]any{"meeting_id": "m1"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Something went wrong")
	require.NotContains(t, err.Error(), "unauthorized")
	require.NotContains(t, err.Error(), "database is locked")
}

func TestServer_DocsResource(t *testing.T) {
	ts := testserver.New(t, attendance.Options{})
	session := connect(t, ts, testserver.Alice)

	res, err := session.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "rcos://docs/attendance"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "Spot checks")
}
