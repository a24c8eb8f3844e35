package logger

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// Field helpers for the values this service logs constantly. Session cookies
// are auth material: only the cookie name and domain ever reach a log line,
// the value does not.

// JobID returns a job_id field
func JobID(id uuid.UUID) zap.Field {
	return zap.String("job_id", id.String())
}

// UserID returns a user_id field
func UserID(id uuid.UUID) zap.Field {
	return zap.String("user_id", id.String())
}

// Platform returns a platform field
func Platform(code platform.Code) zap.Field {
	return zap.String("platform", code.String())
}

// FailureKind returns an error_kind field
func FailureKind(kind platform.FailureKind) zap.Field {
	return zap.String("error_kind", kind.String())
}

// CookieNames returns a cookies field carrying name@domain pairs only
func CookieNames(cookies []platform.Cookie) zap.Field {
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name+"@"+c.Domain)
	}
	return zap.Strings("cookies", names)
}
