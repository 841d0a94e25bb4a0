package replay

import (
	"encoding/json"

	"github.com/reversteem/reversteem/pkg/model"
)

// RootMetadata is the json_metadata for a new game post by black.
func RootMetadata(black string, timeoutMinutes int, tags []string) string {
	return mustJSON(map[string]interface{}{
		"app":            AppInfo,
		"type":           gameStartType,
		"black":          black,
		"white":          nil,
		"status":         "open",
		"timeoutMinutes": timeoutMinutes,
		"tags":           tags,
	})
}

// JoinMetadata is the json_metadata of a join reply.
func JoinMetadata() string {
	return mustJSON(map[string]interface{}{"app": AppInfo, "action": model.KindJoin})
}

// MoveMetadata is the json_metadata of a move reply.
func MoveMetadata(m model.Move) string {
	return mustJSON(map[string]interface{}{
		"app":        AppInfo,
		"action":     model.KindMove,
		"index":      m.Index,
		"moveNumber": m.MoveNumber,
	})
}

// ClaimMetadata is the json_metadata of a timeout claim reply.
func ClaimMetadata(c model.TimeoutClaim) string {
	return mustJSON(map[string]interface{}{
		"app":          AppInfo,
		"action":       model.KindTimeoutClaim,
		"claimAgainst": c.Against.String(),
		"moveNumber":   c.MoveNumber,
	})
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
