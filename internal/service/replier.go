package service

// Replier delivers a plain-text reply on the user's originating channel.
// The websocket gateway hub implements it; tests use a recording fake.
type Replier interface {
	SendText(userID, text string)
}
