package graph

// ============================================================================
// Content Graph Types
// ============================================================================

// ActorKind distinguishes the two disjoint actor labels
type ActorKind string

const (
	// KindSubscriber is an ordinary user: proposes posts, comments, likes
	KindSubscriber ActorKind = "subscriber"
	// KindExpert edits, validates and publishes posts
	KindExpert ActorKind = "expert"
)

// Label returns the node label for the kind
func (k ActorKind) Label() string {
	if k == KindExpert {
		return LabelExpert
	}
	return LabelSubscriber
}

// Valid reports whether k is one of the known kinds
func (k ActorKind) Valid() bool {
	return k == KindSubscriber || k == KindExpert
}

// Actor is a Subscriber or an Expert node
type Actor struct {
	ID         string                 `json:"id"`
	Kind       ActorKind              `json:"kind"`
	Name       string                 `json:"name,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Post is the raw Post node
type Post struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	CreationDate     int64    `json:"creation_date"`
	ModificationDate int64    `json:"modification_date"`
	FilesList        []string `json:"files_list"`
	Published        bool     `json:"published"`
	Region           string   `json:"region"`
	Tribe            string   `json:"tribe"`
}

// Counters are the live aggregates derived from a post's edges
type Counters struct {
	Likes    []string `json:"likes"`    // ids of subscribers reached via LIKED_BY
	Comments int64    `json:"comments"` // HAS_COMMENT edges, responses included
}

// PostView is what GetPost returns: counters only for published posts,
// and never authorship.
type PostView struct {
	Post
	*Counters
}

// PostRecord is a fully aggregated post
type PostRecord struct {
	Post
	Counters
	Author     *Actor  `json:"author"`
	SubAuthors []Actor `json:"subAuthors"`
}

// PostPage is one page of GetAllPosts
type PostPage struct {
	Data []PostRecord `json:"data"`
	Next bool         `json:"next"`
	Skip int64        `json:"skip"` // offset of the following page when Next, else the requested one
}

// PostInput carries the editable fields of a post
type PostInput struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	FilesList []string `json:"files_list"`
	Region    string   `json:"region"`
	Tribe     string   `json:"tribe"`
}

// Authorship is the resolved author and editors of a post
type Authorship struct {
	Author  *Actor  `json:"author"`
	Editors []Actor `json:"editors"`
}

// Comment is the raw Comment node
type Comment struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	CreationDate int64  `json:"creation_date"`
	Edited       bool   `json:"edited"`
	IsResponse   bool   `json:"is_response"`
}

// AuthoredComment is a comment with its resolved Subscriber
type AuthoredComment struct {
	Comment
	Author *Actor `json:"author"`
}

// CommentThread is a root comment with its direct responses. Responses are
// never expanded further.
type CommentThread struct {
	AuthoredComment
	Responses []AuthoredComment `json:"responses"`
}

// LikeOutcome reports the state of the like after a toggle
type LikeOutcome struct {
	PostID  string `json:"post_id"`
	ActorID string `json:"actor_id"`
	Liked   bool   `json:"liked"`
}
