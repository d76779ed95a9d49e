package model

// ChannelKind distinguishes direct conversations from group channels.
type ChannelKind string

const (
	ChannelDirect ChannelKind = "direct"
	ChannelGroup  ChannelKind = "group"
)

// InboundMessage is a chat event as delivered by the gateway.
type InboundMessage struct {
	SenderID string      `json:"sender_id"`
	Channel  ChannelKind `json:"channel"`
	Text     string      `json:"text"`
}

// OutboundMessage is a plain-text reply sent back on the originating channel.
type OutboundMessage struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}
