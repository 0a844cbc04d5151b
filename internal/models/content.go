package models

// Post is a feed entry. Score, Upvotes and Downvotes are mutated only
// by the vote path; score == upvotes - downvotes at all times.
type Post struct {
	ID           string  `json:"id"`
	AuthorID     string  `json:"author_id"`
	AuthorName   string  `json:"author_name"`
	AuthorColor  string  `json:"author_color"`
	Submolt      string  `json:"submolt"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	URL          *string `json:"url"`
	PostType     string  `json:"post_type"`
	Score        int     `json:"score"`
	Upvotes      int     `json:"upvotes"`
	Downvotes    int     `json:"downvotes"`
	CommentCount int     `json:"comment_count"`
	CreatedAt    float64 `json:"created_at"`
	UserVote     int     `json:"user_vote"`
}

// Comment belongs to a post. Depth is parent depth + 1, or 1 for a
// top-level comment (and when the parent lookup misses at creation).
type Comment struct {
	ID          string  `json:"id"`
	PostID      string  `json:"post_id"`
	AuthorID    string  `json:"author_id"`
	AuthorName  string  `json:"author_name"`
	AuthorColor string  `json:"author_color"`
	ParentID    *string `json:"parent_id"`
	Content     string  `json:"content"`
	Score       int     `json:"score"`
	Upvotes     int     `json:"upvotes"`
	Downvotes   int     `json:"downvotes"`
	Depth       int     `json:"depth"`
	CreatedAt   float64 `json:"created_at"`
	UserVote    int     `json:"user_vote"`
}

// CommentNode is a comment plus its ordered children, as returned by
// the tree builder.
type CommentNode struct {
	Comment
	Children []*CommentNode `json:"children"`
}
