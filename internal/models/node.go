package models

import "time"

// Node to pojedynczy wpis w drzewie plików: plik albo folder.
type Node struct {
	ID         string     `json:"id"`
	OwnerID    int64      `json:"owner_id"`
	ParentID   *string    `json:"parent_id"`
	Name       string     `json:"name"`
	NodeType   string     `json:"node_type"`
	SizeBytes  *int64     `json:"size_bytes"`
	MimeType   *string    `json:"mime_type"`
	StorageKey *string    `json:"-"`
	IsStarred  bool       `json:"is_starred"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

const (
	NodeTypeFile   = "file"
	NodeTypeFolder = "folder"
)

func (n *Node) IsFolder() bool {
	return n.NodeType == NodeTypeFolder
}

func (n *Node) IsDeleted() bool {
	return n.DeletedAt != nil
}
