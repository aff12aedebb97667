package messages

import "messenger/internal/app/store"

// ReactionGroup is the aggregated view of one emoji on a message: how many
// users reacted with it and who, in (re)write order.
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// AggregateReactions folds a message's reaction list into emoji-grouped counts.
// Groups appear in the order their emoji first occurs. The fold assumes the list
// holds at most one entry per user; replace-on-write is the facade's job.
func AggregateReactions(reactions []store.Reaction) []ReactionGroup {
	groups := []ReactionGroup{}
	index := make(map[string]int)

	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			index[r.Emoji] = len(groups)
			groups = append(groups, ReactionGroup{Emoji: r.Emoji, Users: []string{}})
			i = len(groups) - 1
		}
		groups[i].Count++
		groups[i].Users = append(groups[i].Users, r.User)
	}

	return groups
}
