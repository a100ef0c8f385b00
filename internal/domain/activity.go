package domain

// Activity types the webhook dispatches on.
const (
	ActivityMessage            = "message"
	ActivityConversationUpdate = "conversationUpdate"
)

// Defaults substituted when Teams omits identity fields.
const (
	DefaultConversationID = "default"
	DefaultUserID         = "teams-user"
	DefaultUserName       = "User"
)

// Activity is an inbound Bot Framework activity as Teams delivers it.
// Only the fields the webhook consumes are mapped; the rest of the payload
// is ignored.
type Activity struct {
	Type         string           `json:"type"`
	ID           string           `json:"id,omitempty"`
	Timestamp    string           `json:"timestamp,omitempty"`
	ServiceURL   string           `json:"serviceUrl,omitempty"`
	ChannelID    string           `json:"channelId,omitempty"`
	From         ChannelAccount   `json:"from,omitempty"`
	Recipient    ChannelAccount   `json:"recipient,omitempty"`
	Conversation Conversation     `json:"conversation,omitempty"`
	Text         string           `json:"text,omitempty"`
	MembersAdded []ChannelAccount `json:"membersAdded,omitempty"`
	Value        any              `json:"value,omitempty"`
	ReplyToID    string           `json:"replyToId,omitempty"`
}

// ChannelAccount represents a Teams user or bot.
type ChannelAccount struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	AADObjectID string `json:"aadObjectId,omitempty"`
}

// Conversation identifies the Teams conversation an activity belongs to.
type Conversation struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	ConversationType string `json:"conversationType,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
}

// ConversationID returns the conversation id, or DefaultConversationID when
// the activity carries none.
func (a *Activity) ConversationID() string {
	if a.Conversation.ID == "" {
		return DefaultConversationID
	}
	return a.Conversation.ID
}

// UserID returns the sender id, or DefaultUserID when absent.
func (a *Activity) UserID() string {
	if a.From.ID == "" {
		return DefaultUserID
	}
	return a.From.ID
}

// UserName returns the sender display name, or DefaultUserName when absent.
func (a *Activity) UserName() string {
	if a.From.Name == "" {
		return DefaultUserName
	}
	return a.From.Name
}

// Reply is the payload returned to Teams.
type Reply struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewMessageReply builds a plain-text message reply.
func NewMessageReply(text string) Reply {
	return Reply{Type: ActivityMessage, Text: text}
}
