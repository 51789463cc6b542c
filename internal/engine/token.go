package engine

// Kind represents token kinds produced by a TokenSource.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

var kindNames = [...]string{
	KindBeginObject: "begin_object",
	KindEndObject:   "end_object",
	KindBeginArray:  "begin_array",
	KindEndArray:    "end_array",
	KindKey:         "key",
	KindString:      "string",
	KindNumber:      "number",
	KindBool:        "bool",
	KindNull:        "null",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Token is a single lexical element of wire text. Number holds the literal
// text so callers decide how to interpret it.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
}

// TokenSource is the minimal interface the decoder consumes.
type TokenSource interface {
	NextToken() (Token, error)
}

// SimpleIssue is a lightweight problem report raised while reading tokens.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is an error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }
