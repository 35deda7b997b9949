package dialog

// PendingKind tells what the next text message answers.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingTopic
	PendingExample
	PendingSetup
	PendingTypeName
	PendingField
	PendingRename
	PendingEditExample
)

var pendingNames = [...]string{
	PendingNone:        "none",
	PendingTopic:       "topic",
	PendingExample:     "example",
	PendingSetup:       "setup",
	PendingTypeName:    "type_name",
	PendingField:       "field",
	PendingRename:      "rename",
	PendingEditExample: "edit_example",
}

func (k PendingKind) String() string {
	if int(k) < len(pendingNames) {
		return pendingNames[k]
	}
	return "unknown"
}

// Field names a profile field.
type Field string

const (
	FieldName        Field = "name"
	FieldTag         Field = "tag"
	FieldPersonality Field = "personality"
	FieldServices    Field = "services"
	FieldLanguage    Field = "language"
)

// setupOrder is the sequence of the initial profile questions.
var setupOrder = []Field{FieldName, FieldTag, FieldPersonality, FieldServices, FieldLanguage}

func validField(f Field) bool {
	for _, v := range setupOrder {
		if v == f {
			return true
		}
	}
	return false
}

// Pending is the single outstanding question of a session. Only the members
// relevant to Kind are set: Type for topic, example, rename and edit_example;
// Field for setup and field; Index and Example for edit_example.
type Pending struct {
	Kind  PendingKind
	Type  string
	Field Field
	Index int
	// Example is the text at Index when the edit began; the edit fails if it changed.
	Example string
}

// GeneratedPost is the last post shown with accept/rewrite buttons.
type GeneratedPost struct {
	Type  string
	Topic string
	Text  string
	Index int
}

// Session is the per-user dialog state. It is never persisted.
type Session struct {
	Pending Pending
	// Selected is the post type opened in the manage submenu.
	Selected string
	Last     *GeneratedPost
}

// Button is one inline button. Action plus Payload must fit Telegram's 64-byte callback data.
type Button struct {
	Label   string
	Action  string
	Payload string
}

// Reply is one outbound message in Telegram HTML.
type Reply struct {
	Text     string
	Keyboard [][]Button
}
