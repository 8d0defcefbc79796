// Package txn runs store mutations inside MongoDB transactions.
//
// Transactions need a replica set or sharded cluster. On a standalone
// server (typical for local development) Run detects the "not supported"
// family of errors, logs once, and runs the function without a transaction.
// Unique indexes still guard uniqueness in that mode; referential checks
// become best-effort.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// unsupported latches once the server has told us it cannot run transactions.
var unsupported atomic.Bool

// Run executes fn inside a transaction on db's client. fn receives a
// session-bound context and must use it for every operation that should be
// part of the transaction. Any error returned by fn aborts the transaction
// and is returned unchanged.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	if unsupported.Load() {
		return fn(ctx)
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			fallback(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		fallback(log, err)
		return fn(ctx)
	}
	return err
}

func fallback(log *zap.Logger, err error) {
	if unsupported.Swap(true) {
		return
	}
	if log == nil {
		log = zap.L()
	}
	log.Warn("mongo transactions not supported; running writes without a transaction", zap.Error(err))
}

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: transaction numbers only allowed on replica sets
			51,  // legacy illegal operation
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	s := strings.ToLower(err.Error())
	hasTxn := strings.Contains(s, "transaction")
	hasSession := strings.Contains(s, "session")
	if hasTxn && hasSession {
		return true
	}
	if !hasTxn && !hasSession {
		return false
	}
	return strings.Contains(s, "replica set") ||
		strings.Contains(s, "not supported") ||
		strings.Contains(s, "illegal operation")
}
