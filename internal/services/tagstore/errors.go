package tagstore

import "errors"

var (
	// ErrNotLoaded indicates an operation that needs file state before Load
	ErrNotLoaded = errors.New("asset not loaded")

	// ErrNotReconciled indicates an edit or save attempted before Reconcile
	ErrNotReconciled = errors.New("asset not reconciled")

	// ErrStaleAsset indicates the file's content changed underneath the
	// store; its fingerprint no longer matches the one captured at load
	ErrStaleAsset = errors.New("asset content changed since load")

	// ErrSaveInProgress indicates a concurrent save on the same asset
	ErrSaveInProgress = errors.New("save already in progress")
)
