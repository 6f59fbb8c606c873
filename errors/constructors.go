package errors

import "fmt"

// DecodeFailed creates an error for a data file that exists but cannot be parsed
func DecodeFailed(path string, err error) *AppError {
	return Wrap(err, ErrCodeDecodeFailed, fmt.Sprintf("cannot decode data file: %s", path)).
		WithDetail("path", path)
}

// EncodeFailed creates an error for a document that cannot be written
func EncodeFailed(path string, err error) *AppError {
	return Wrap(err, ErrCodeEncodeFailed, fmt.Sprintf("cannot write data file: %s", path)).
		WithDetail("path", path)
}

// InvalidData creates a decode error for a structurally valid file holding invalid records
func InvalidData(path string, reason string) *AppError {
	return New(ErrCodeDecodeFailed, fmt.Sprintf("invalid data in %s: %s", path, reason)).
		WithDetail("path", path)
}

// GroupNotFound creates a group not found error
func GroupNotFound(groupID int) *AppError {
	return New(ErrCodeGroupNotFound, fmt.Sprintf("group %d not found", groupID)).
		WithDetail("groupID", groupID)
}

// InvalidInput creates an invalid input error
func InvalidInput(reason string) *AppError {
	return New(ErrCodeInvalidInput, reason)
}

// AlreadyListening creates an error for a group that already watches a directory
func AlreadyListening(groupID int, dir string) *AppError {
	return New(ErrCodeAlreadyListening, fmt.Sprintf("group %d is already listening on %s", groupID, dir)).
		WithDetail("groupID", groupID).
		WithDetail("dir", dir)
}

// NotListening creates an error for a stop request on a group without a watch
func NotListening(groupID int) *AppError {
	return New(ErrCodeNotListening, fmt.Sprintf("group %d is not listening on any directory", groupID)).
		WithDetail("groupID", groupID)
}

// DirectoryNotFound creates an error for a listen request on a missing directory
func DirectoryNotFound(dir string) *AppError {
	return New(ErrCodeDirectoryNotFound, fmt.Sprintf("directory not found: %s", dir)).
		WithDetail("dir", dir)
}

// AlreadyRunning creates an error for a second instance touching the same data directory
func AlreadyRunning(pid int) *AppError {
	return New(ErrCodeAlreadyRunning, fmt.Sprintf("another instance is running (PID %d)", pid)).
		WithDetail("pid", pid)
}

// LaunchFailed creates an error for a file or URL that could not be opened
func LaunchFailed(target string, err error) *AppError {
	return Wrap(err, ErrCodeLaunchFailed, fmt.Sprintf("cannot open %s", target)).
		WithDetail("target", target)
}
