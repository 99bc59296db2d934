package service

// Live message types sent to survey subscribers
const (
	MsgResponseSubmitted = "response_submitted"
	MsgAnalyticsUpdate   = "analytics_update"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToSurvey(surveyID string, msgType string, payload interface{})
	DisconnectSurvey(surveyID string)
}
