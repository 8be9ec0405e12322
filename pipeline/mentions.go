package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kabsume/campusfeed/identity"
	"github.com/kabsume/campusfeed/utils"
)

// Stored content carries id-based mention tokens (@<id>), never display
// names, so a later username change cannot break old posts. Rendering
// resolves the id back to the live username.
var mentionPattern = regexp.MustCompile(`@(\d+)\b`)

// Mentions resolves mention candidates and tokens through the identity
// provider.
type Mentions struct {
	ids identity.Provider
}

// NewMentions creates a Mentions helper.
func NewMentions(ids identity.Provider) *Mentions {
	return &Mentions{ids: ids}
}

// Candidates returns users matching a partial name while the author types.
// Debouncing is the client's concern.
func (m *Mentions) Candidates(ctx context.Context, name string, limit int) ([]identity.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	profiles, err := m.ids.SearchUsers(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("mention lookup: %w", err)
	}
	return profiles, nil
}

// MentionIDs extracts the user ids referenced by mention tokens in content.
func MentionIDs(content string) []uint {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	ids := make([]uint, 0, len(matches))
	for _, match := range matches {
		id, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return utils.UniqueUint(ids)
}

// RenderAll renders mention tokens across many contents with a single
// identity lookup, for feed pages.
func (m *Mentions) RenderAll(ctx context.Context, contents []string) ([]string, error) {
	var all []uint
	for _, c := range contents {
		all = append(all, MentionIDs(c)...)
	}
	all = utils.UniqueUint(all)

	usernames := map[uint]string{}
	if len(all) > 0 {
		profiles, err := m.ids.GetUsersByIDs(ctx, all)
		if err != nil {
			return nil, fmt.Errorf("resolve mentions: %w", err)
		}
		for _, p := range profiles {
			usernames[p.ID] = p.Username
		}
	}

	out := make([]string, len(contents))
	for i, c := range contents {
		out[i] = replaceMentions(c, usernames)
	}
	return out, nil
}

// Render replaces mention tokens with the users' current usernames. Tokens
// whose id is unknown to the identity provider pass through verbatim rather
// than vanishing.
func (m *Mentions) Render(ctx context.Context, content string) (string, error) {
	ids := MentionIDs(content)
	if len(ids) == 0 {
		return content, nil
	}
	profiles, err := m.ids.GetUsersByIDs(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("resolve mentions: %w", err)
	}
	usernames := make(map[uint]string, len(profiles))
	for _, p := range profiles {
		usernames[p.ID] = p.Username
	}
	return replaceMentions(content, usernames), nil
}

func replaceMentions(content string, usernames map[uint]string) string {
	return mentionPattern.ReplaceAllStringFunc(content, func(token string) string {
		id, err := strconv.ParseUint(strings.TrimPrefix(token, "@"), 10, 64)
		if err != nil {
			return token
		}
		if username, ok := usernames[uint(id)]; ok {
			return "@" + username
		}
		return token
	})
}
