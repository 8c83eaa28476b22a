package store

import "time"

type MessageType string

const (
	TypeImage  MessageType = "image"
	TypeEditor MessageType = "editor"
	TypeBanner MessageType = "banner"
)

type MessageStatus string

const (
	StatusDraft     MessageStatus = "draft"
	StatusPublished MessageStatus = "published"
)

// RegionPopup is the one region where at most a single message renders and
// dismissal cookies apply by default.
const RegionPopup = "popup"

// Regions lists the built-in front-end locations. Custom region names are
// accepted too.
var Regions = []string{
	RegionPopup,
	"homepage_top",
	"homepage_middle",
	"homepage_bottom",
	"article_top",
	"article_middle",
	"article_bottom",
	"sitewide_banner",
}

// Conditionals are the page conditions a message can be limited to.
var Conditionals = []string{
	"is_front_page",
	"is_home",
	"is_single",
	"is_page",
	"is_archive",
	"is_search",
	"is_404",
}

type Message struct {
	ID           int64
	Title        string
	Region       string
	Type         MessageType
	Status       MessageStatus
	MenuOrder    int
	Conditionals []string     // Decoded from JSON
	ScreenSizes  []ScreenSize // Decoded from JSON
	Session      *SessionRule // nil when not session-gated
	DismissDays  int
	DismissHours int
	ShowOnce     bool
	BannerColors BannerColors
	StartsAt     *time.Time
	EndsAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Dismissible reports whether the rendered message carries a close control.
func (m *Message) Dismissible() bool {
	return m.Region == RegionPopup || m.DismissDays > 0 || m.DismissHours > 0
}

// ScreenSize is one breakpoint-specific rendering of a message.
type ScreenSize struct {
	MinWidth *int    `json:"min_width,omitempty" yaml:"min_width,omitempty"`
	MaxWidth *int    `json:"max_width,omitempty" yaml:"max_width,omitempty"`
	ImageURL string  `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	ImageAlt string  `json:"image_alt,omitempty" yaml:"image_alt,omitempty"`
	Content  string  `json:"content,omitempty" yaml:"content,omitempty"`
	LinkURL  string  `json:"link_url,omitempty" yaml:"link_url,omitempty"`
	Button   *Button `json:"button,omitempty" yaml:"button,omitempty"`
}

type Button struct {
	Text string `json:"text" yaml:"text"`
	URL  string `json:"url" yaml:"url"`
}

// SessionRule gates a message on the visitor's visit count.
type SessionRule struct {
	Operator  string `json:"operator" yaml:"operator"` // ">=" or "<="
	Threshold int    `json:"threshold" yaml:"threshold"`
}

type BannerColors struct {
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
	Text       string `json:"text,omitempty" yaml:"text,omitempty"`
}

type Event struct {
	ID        int64
	MessageID int64
	EventType string // "view" or "dismiss"
	VisitorID string
	CreatedAt time.Time
}

const (
	EventView    = "view"
	EventDismiss = "dismiss"
)

type MessageStats struct {
	MessageID  int64
	Views      int
	Dismissals int
}
