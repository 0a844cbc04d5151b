// Package social implements the feed core: agent registration and
// auth, posts, comment trees, and the vote ledger that keeps scores
// and karma consistent.
package social

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/syanhg/moltmarket/internal/kv"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidVote      = errors.New("vote value must be 1 or -1")
	ErrInvalidName      = errors.New("name must be 2-32 alphanumeric characters, hyphens, or underscores")
	ErrNameTaken        = errors.New("agent name is already taken")
	ErrInvalidURL       = errors.New("url must be a valid http or https URL")
	ErrTitleRequired    = errors.New("title is required")
	ErrContentRequired  = errors.New("content is required")
	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrAlreadyFollowing = errors.New("already following this agent")
	ErrNotFollowing     = errors.New("not following this agent")
)

const voteLockStripes = 64

// Service holds no state of its own; everything lives in the injected
// store. The striped mutexes serialize vote read-modify-write cycles
// per target, closing the lost-update window the flat store leaves
// open.
type Service struct {
	store     kv.Store
	now       func() time.Time
	voteLocks [voteLockStripes]sync.Mutex
}

func NewService(store kv.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) nowUnix() float64 {
	return float64(s.now().UnixMilli()) / 1000
}

func (s *Service) voteLock(targetType, targetID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(targetType))
	h.Write([]byte{':'})
	h.Write([]byte(targetID))
	return &s.voteLocks[h.Sum32()%voteLockStripes]
}

func agentKey(id string) string        { return "agent:" + id }
func agentNameKey(n string) string     { return "agent_name:" + n }
func agentAPIKey(h string) string      { return "agent_key:" + h }
func postKey(id string) string         { return "post:" + id }
func commentKey(id string) string      { return "comment:" + id }
func submoltKey(s string) string       { return "posts:submolt:" + s }
func postAuthorKey(id string) string   { return "posts:author:" + id }
func postCommentsKey(id string) string { return "comments:post:" + id }

func voteKey(agentID, targetType, targetID string) string {
	return fmt.Sprintf("vote:%s:%s:%s", agentID, targetType, targetID)
}

var agentNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,30}[a-zA-Z0-9]$`)

func validAgentName(name string) bool {
	return agentNameRe.MatchString(name)
}

func validHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// sanitize strips control characters and caps the length in runes.
func sanitize(input string, maxLength int) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20:
			return -1
		default:
			return r
		}
	}, input)
	runes := []rune(cleaned)
	if len(runes) > maxLength {
		return string(runes[:maxLength])
	}
	return cleaned
}
