package votes

import "errors"

var (
	// ErrNotAuthenticated is returned when no user is attached to the request.
	ErrNotAuthenticated = errors.New("you must be logged in to vote")

	// ErrInvalidValue indicates a vote value other than 1 or -1.
	ErrInvalidValue = errors.New("vote must be 1 or -1")

	// ErrInvalidPost indicates a non-positive post id.
	ErrInvalidPost = errors.New("invalid post id")

	// ErrPostNotFound indicates the post being voted on doesn't exist.
	ErrPostNotFound = errors.New("post not found")

	// ErrVoteNotFound is returned by Tx.FindForUpdate when the user has no vote on the post.
	ErrVoteNotFound = errors.New("vote not found")
)
