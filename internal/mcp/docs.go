package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `rcos-io takes attendance for RCOS meetings through short-lived attendance rooms.

Core concepts:
- Meeting: a scheduled gathering in a semester, optionally tied to a small group.
- Room: a live, expiring check-in window for one meeting, identified by a six character code.
- Record: the durable fact that a user attended a meeting. Each (meeting, user) pair has at most one.

Workflow for hosts (coordinators, the meeting host, small group mentors):
1) open_attendance(meeting_id) and share the returned code. Opening again replaces the code.
2) Attendees check in with the code. Some may be held for a manual spot check.
3) record_attendance(meeting_id, code, subject) adds someone by user id, email or RCS ID.
4) meeting_attendance(meeting_id) lists who attended and who is still missing.
5) close_attendance(meeting_id, code) ends check-in before the room expires.

Use attendance_status to see whether a room is live and search_users (with the meeting_id) to find the right subject.`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "rcos://docs/attendance",
		Name:        "attendance-guide",
		Title:       "Taking attendance",
		Description: "How attendance rooms, codes and spot checks behave",
		Content: `# Taking attendance

## Rooms

- A meeting has at most one live room. Opening a room while one is live replaces it and the old code stops working.
- Rooms expire on their own. Without an explicit TTL a room lasts until the meeting ends, or 30 minutes for meetings that are not in progress.
- Closing requires the live code, so a stale code can never close a newer room.

## Codes

- Codes are six characters from an alphabet without I, O, 0 or 1.
- Codes are case-insensitive when typed.

## Records

- Checking in twice is harmless; the second attempt reports the existing record.
- Manual additions are marked as such and never override a self check-in.

## Spot checks

- When a verification rate is configured, some self check-ins are held until a host adds the attendee manually.
- Once held, the attendee stays held for the life of the room.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
