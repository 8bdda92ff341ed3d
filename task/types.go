package task

import "github.com/hatcher/taskchat/pkg/util"

// Task matches the backend task resource.
type Task struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type CreateParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// UpdateParams is a full replacement: the backend overwrites every field,
// callers resolve values they want kept.
type UpdateParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Patch are optional field overrides for an update; nil keeps the task's
// current value.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Resolve merges the patch over the task's current fields into the full
// replacement payload the update endpoint expects.
func (p Patch) Resolve(current Task) UpdateParams {
	return UpdateParams{
		Title:       util.FromOrDefault(p.Title, current.Title),
		Description: util.FromOrDefault(p.Description, current.Description),
		Completed:   util.FromOrDefault(p.Completed, current.Completed),
	}
}
