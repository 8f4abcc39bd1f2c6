package model

import "github.com/google/uuid"

// Message is the business payload carried by a Commit. It is deliberately
// thin: everything positional (pts, server_msg_id, sender) lives on Commit,
// keeping Message reusable across the submit and difference-pull paths.
type Message struct {
	ID        uuid.UUID
	ThreadID  uuid.UUID
	From      Peer
	To        Peer
	Text      string
	CreatedAt int64
	UpdatedAt int64

	Documents []*Document
	Images    []*Image

	// Metadata carries client-supplied, server-opaque JSON (spec §3 Commit.metadata).
	Metadata map[string]any
}

type Document struct {
	ID       string
	URL      string
	FileName string
	MimeType string
	Size     int64
}

type Image struct {
	ID         string
	URL        string
	FileName   string
	MimeType   string
	Thumbnails []string
}
