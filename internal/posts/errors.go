package posts

import "errors"

var (
	// ErrImageRequired is returned before any I/O when no image was selected.
	ErrImageRequired = errors.New("please select an image file")

	ErrTitleRequired    = errors.New("title is required")
	ErrContentRequired  = errors.New("content is required")
	ErrUnsupportedImage = errors.New("only image files can be uploaded")

	// ErrPostNotFound indicates the requested post doesn't exist.
	ErrPostNotFound = errors.New("post not found")

	// ErrCommunityNotFound indicates the post references a missing community.
	ErrCommunityNotFound = errors.New("community not found")
)
