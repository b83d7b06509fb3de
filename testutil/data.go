package testutil

// Frames the gateway may send, one per message shape, for table tests.
var (
	CommandFrame      = `{"id": 1, "method": "Network.getResponseBody", "params": {"requestId": "0"}}`
	NotificationFrame = `{"method": "Network.enable", "params": {}}`
	ResponseFrame     = `{"id": 1, "result": {}}`
)

// MalformedFrames never classify as Command, Notification or Response.
var MalformedFrames = []string{
	`{}`,
	`{"id": 5}`,
	`[1, 2, 3]`,
	`{"params": {"x": 1}}`,
	`not json at all`,
}
