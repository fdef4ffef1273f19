package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const keyPrefix = "go-pagekit:"

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// MediaRecordUUID is the row key of a media record within a project.
func MediaRecordUUID(projectID, fileID string) uuid.UUID {
	return UUID(keyPrefix + "media:" + strings.TrimSpace(projectID) + ":" + strings.TrimSpace(fileID))
}

// PageUUID derives a page uuid for pages authored without one.
func PageUUID(projectID, pageID string) uuid.UUID {
	return UUID(keyPrefix + "page:" + strings.TrimSpace(projectID) + ":" + strings.TrimSpace(pageID))
}
