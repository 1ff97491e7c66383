// Package txn wraps Mongo multi-document transactions.
//
// Transactions require a replica set or sharded deployment. On a
// standalone server they fail with a recognizable error; callers detect
// that with IsNotSupported and fall back to a sequential path whose
// critical invariant is carried by a unique index instead.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Run executes fn inside a session transaction and returns its result.
func Run(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	return session.WithTransaction(ctx, fn)
}

// IsNotSupported reports whether err indicates the deployment cannot run
// multi-document transactions (standalone server, old wire version).
//
// Known server codes:
//
//	20  IllegalOperation ("Transaction numbers are only allowed on a replica set member")
//	51  also surfaces as IllegalOperation on some versions
//	263 OperationNotSupportedInTransaction
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	// Fall back to message sniffing; drivers and proxies are not
	// consistent about surfacing the code.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "illegal operation") {
		return true
	}
	if strings.Contains(msg, "transaction") && strings.Contains(msg, "replica set") {
		return true
	}
	if strings.Contains(msg, "session") && strings.Contains(msg, "not supported") {
		return true
	}
	if strings.Contains(msg, "transaction") && strings.Contains(msg, "session") {
		return true
	}
	return false
}
