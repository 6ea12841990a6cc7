package model

import "time"

// TweetType classifies a post.
type TweetType string

const (
	TypeTweet   TweetType = "TWEET"
	TypeReply   TweetType = "REPLY"
	TypeQuote   TweetType = "QUOTE"
	TypeRetweet TweetType = "RETWEET"
)

// Discovery reasons recorded on candidates. Each candidate carries exactly
// one of these out of the store; the scorer may append more.
const (
	ReasonFromFollowing        = "from_following"
	ReasonRetweetedByFollowed  = "retweeted_by_followed"
	ReasonQuotedByFollowed     = "quoted_by_followed"
	ReasonLikedByFollowed      = "liked_by_followed"
	ReasonBookmarkedByFollowed = "bookmarked_by_followed"
	ReasonTwoHop               = "two_hop_network"
	ReasonTrending             = "trending"
	ReasonTopicMatch           = "topic_match"
	ReasonCategoryMatch        = "category_match"
	ReasonGlobalFallback       = "global_fallback"
	ReasonVerifiedAuthor       = "verified_author"
	ReasonThreadParent         = "thread_parent"
)

// IDSet is a string set keyed by id or tag.
type IDSet map[string]struct{}

// Has reports membership; a nil set contains nothing.
func (s IDSet) Has(id string) bool { _, ok := s[id]; return ok }

// Add inserts id into the set.
func (s IDSet) Add(id string) { s[id] = struct{}{} }

// Slice returns the members in unspecified order.
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// ViewerContext is everything the pipeline knows about the requesting user.
// Built once per request, immutable afterward.
type ViewerContext struct {
	UserID               string
	MutedAuthorIDs       IDSet
	BlockedAuthorIDs     IDSet
	DismissedPostIDs     IDSet
	SpamCounts           map[string]int
	FollowedAuthorIDs    IDSet // Following feed: includes the viewer
	TwoHopAuthorIDs      IDSet // For-You only
	TopicalAffinity      IDSet // normalized hashtags
	PreferredCategoryIDs IDSet
}

// Candidate is the thin projection of a post produced by candidate
// generation, before scoring and hydration.
type Candidate struct {
	ID               string
	AuthorID         string
	BoostAuthorID    string // retweeting/quoting follower for indirect rows
	TweetType        TweetType
	ParentID         string
	CreatedAt        time.Time
	Likes            int
	Retweets         int
	Replies          int
	Quotes           int
	LikesRecent      int
	RetweetsRecent   int
	AuthorVerified   bool
	AuthorReputation float64
	Hashtags         []string
	CategoryIDs      []string
	Reason           string
}

// Popularity is the static proxy used for dedup tie-breaks and pool capping.
func (c Candidate) Popularity() int {
	return c.Likes + c.Retweets + c.Replies + c.Quotes
}

// ScoredCandidate pairs a candidate with its score and the reasons that
// contributed to it. Request-scoped.
type ScoredCandidate struct {
	Candidate
	Score   float64
	Reasons []string
}

// AuthorSummary is the embedded author DTO on feed items.
type AuthorSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Verified    bool   `json:"verified"`
}

// FullPost is a hydrated post row: post, author, the viewer's interaction
// flags, and media.
type FullPost struct {
	ID           string
	AuthorID     string
	Content      string
	TweetType    TweetType
	ParentID     string
	ReplyControl string
	CreatedAt    time.Time
	Likes        int
	Retweets     int
	Replies      int
	Quotes       int
	Author       AuthorSummary
	MediaIDs     []string
	Liked        bool
	Retweeted    bool
	Bookmarked   bool
}

// FeedItem is the output DTO. EmbeddedParentTweet is populated at most one
// level deep and never carries a parent of its own.
type FeedItem struct {
	ID                  string        `json:"id"`
	Content             string        `json:"content"`
	Likes               int           `json:"likes"`
	Retweets            int           `json:"retweets"`
	Replies             int           `json:"replies"`
	Quotes              int           `json:"quotes"`
	ReplyControl        string        `json:"replyControl"`
	ParentID            string        `json:"parentId,omitempty"`
	TweetType           TweetType     `json:"tweetType"`
	Author              AuthorSummary `json:"author"`
	MediaIDs            []string      `json:"mediaIds,omitempty"`
	Liked               bool          `json:"liked"`
	Retweeted           bool          `json:"retweeted"`
	Bookmarked          bool          `json:"bookmarked"`
	Score               float64       `json:"score"`
	Reasons             []string      `json:"reasons"`
	CreatedAt           time.Time     `json:"createdAt"`
	EmbeddedParentTweet *FeedItem     `json:"embeddedParentTweet,omitempty"`
}

// FeedResponse is one page of a ranked feed.
type FeedResponse struct {
	ViewerID    string     `json:"viewerId"`
	Items       []FeedItem `json:"items"`
	NextCursor  *string    `json:"nextCursor"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// CandidateQuery parameterizes candidate generation for one request.
type CandidateQuery struct {
	Viewer         *ViewerContext
	Now            time.Time
	Window         time.Duration // discovery window (e.g. 7 days)
	RecentWindow   time.Duration // velocity window (e.g. 48h)
	PerSourceLimit int
	PoolLimit      int
}

// FollowGraph is the viewer's follow neighborhood.
type FollowGraph struct {
	Followed IDSet
	TwoHop   IDSet
}

// NegativeSignals are the viewer's exclusion signals.
type NegativeSignals struct {
	Muted      IDSet
	Blocked    IDSet
	Dismissed  IDSet
	SpamCounts map[string]int
}

// Interests are the viewer's topical signals for the For-You feed.
type Interests struct {
	Hashtags    IDSet
	CategoryIDs IDSet
}
