package backend

// File statuses, in workflow order.
const (
	StatusUnreviewed = "unreviewed"
	StatusInProgress = "in_progress"
	StatusReviewed   = "reviewed"
	StatusFlagged    = "flagged"
	StatusFinalized  = "finalized"
)

// ValidStatus reports whether s is one of the known workflow statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusUnreviewed, StatusInProgress, StatusReviewed, StatusFlagged, StatusFinalized:
		return true
	}
	return false
}

type Case struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CaseNumber   string `json:"case_number,omitempty"`
	Department   string `json:"department,omitempty"`
	Client       string `json:"client,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
	LastOpenedAt int64  `json:"last_opened_at"`
}

type File struct {
	ID              string `json:"id"`
	CaseID          string `json:"case_id"`
	FileName        string `json:"file_name"`
	FolderPath      string `json:"folder_path"`
	AbsolutePath    string `json:"absolute_path"`
	FileHash        string `json:"file_hash,omitempty"`
	FileType        string `json:"file_type"`
	FileSize        int64  `json:"file_size"`
	CreatedAt       int64  `json:"created_at"`
	ModifiedAt      int64  `json:"modified_at"`
	Status          string `json:"status"`
	SourceDirectory string `json:"source_directory,omitempty"`
}

type Note struct {
	ID        string `json:"id"`
	CaseID    string `json:"case_id"`
	FileID    string `json:"file_id,omitempty"` // empty for case-level notes
	Content   string `json:"content"`
	Pinned    bool   `json:"pinned"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type CaseSource struct {
	ID         string `json:"id"`
	CaseID     string `json:"case_id"`
	SourcePath string `json:"source_path"`
	SourceType string `json:"source_type"`
	AddedAt    int64  `json:"added_at"`
}

// FileCounts summarizes a case's files per workflow status.
type FileCounts struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// DuplicateGroup is a set of files sharing one content hash.
type DuplicateGroup struct {
	FileHash string   `json:"file_hash"`
	FileIDs  []string `json:"file_ids"`
	Count    int      `json:"count"`
}

// NoteCount is the number of notes attached to one file, or to the case
// itself when FileID is empty.
type NoteCount struct {
	FileID string `json:"file_id,omitempty"`
	Count  int64  `json:"count"`
}

// Arguments of the read commands.
type (
	LoadFilesArgs           struct{ CaseID string `json:"case_id"` }
	GetFileCountsArgs       struct{ CaseID string `json:"case_id"` }
	LoadDuplicateGroupsArgs struct{ CaseID string `json:"case_id"` }
	GetNoteCountsArgs       struct{ CaseID string `json:"case_id"` }
	LoadSourcesArgs         struct{ CaseID string `json:"case_id"` }
)

type LoadNotesArgs struct {
	CaseID string `json:"case_id"`
	FileID string `json:"file_id,omitempty"` // empty loads every note of the case
}

// Arguments and results of the mutation commands.

type CreateCaseArgs struct {
	Name       string `json:"name"`
	CaseNumber string `json:"case_number,omitempty"`
	Department string `json:"department,omitempty"`
	Client     string `json:"client,omitempty"`
}

type IngestFilesArgs struct {
	CaseID     string `json:"case_id"`
	SourcePath string `json:"source_path"`
}

// IngestResult reports what a folder ingestion changed.
type IngestResult struct {
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
}

type SyncCaseFolderArgs struct {
	CaseID     string `json:"case_id"`
	SourcePath string `json:"source_path"`
}

// SyncResult reports what a folder sync changed. Kept counts files missing
// on disk that were preserved because they carry notes or review state.
type SyncResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
}

type DeleteFilesArgs struct {
	FileIDs []string `json:"file_ids"`
}

// DeleteResult reports how many files were removed and how many were
// protected (notes attached or finalized) and therefore skipped.
type DeleteResult struct {
	Deleted   int `json:"deleted"`
	Protected int `json:"protected"`
}

type UpdateFileStatusArgs struct {
	FileIDs []string `json:"file_ids"`
	Status  string   `json:"status"`
}

// UpdateStatusResult reports how many files a status update touched.
type UpdateStatusResult struct {
	Updated int `json:"updated"`
}

type AddNoteArgs struct {
	CaseID  string `json:"case_id"`
	FileID  string `json:"file_id,omitempty"`
	Content string `json:"content"`
	Pinned  bool   `json:"pinned,omitempty"`
}

type UpdateNoteArgs struct {
	NoteID  string `json:"note_id"`
	Content string `json:"content"`
	Pinned  *bool  `json:"pinned,omitempty"`
}

type DeleteNoteArgs struct {
	NoteID string `json:"note_id"`
}

type AddSourceArgs struct {
	CaseID     string `json:"case_id"`
	SourcePath string `json:"source_path"`
	SourceType string `json:"source_type,omitempty"`
}
