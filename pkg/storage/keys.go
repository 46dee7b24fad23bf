package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"
)

// TenantKey builds a blob key namespaced under a tenant identifier.
// Every blob written by the platform lives under tenants/<id>/ so that
// tenant data never shares a key space.
func TenantKey(tenantID uuid.UUID, elem ...string) string {
	key := fmt.Sprintf("tenants/%s", tenantID)
	for _, e := range elem {
		key += "/" + e
	}
	return key
}

// DocumentKey builds the content-addressed key for an uploaded document:
// tenants/<tenant>/documents/<sha256>/<filename>.
func DocumentKey(tenantID uuid.UUID, data []byte, filename string) string {
	sum := sha256.Sum256(data)
	return TenantKey(tenantID, "documents", hex.EncodeToString(sum[:]), sanitizeFilename(filename))
}

// ContentHash returns the hex-encoded SHA-256 digest recorded on document rows.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}
