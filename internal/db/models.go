package db

// Workflow represents a row in the workflows table
type Workflow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"` // Unix millis
	UpdatedAt int64  `json:"updated_at"` // Unix millis
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// Node represents a row in the nodes table
type Node struct {
	WorkflowID string  `json:"workflow_id"`
	Ord        int     `json:"ord"`
	ID         string  `json:"id"`
	NodeType   string  `json:"type"`
	Category   *string `json:"category"` // explicit tag, nil when untagged
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Data       *string `json:"data"` // JSON object
}

// Edge represents a row in the edges table
type Edge struct {
	WorkflowID   string  `json:"workflow_id"`
	Ord          int     `json:"ord"`
	ID           string  `json:"id"`
	SourceID     string  `json:"source_id"`
	TargetID     string  `json:"target_id"`
	SourceHandle *string `json:"source_handle"`
	TargetHandle *string `json:"target_handle"`
}

// Attempt is one recorded validation of a learner's workflow
type Attempt struct {
	ID          string   `json:"id"`
	WorkflowID  *string  `json:"workflow_id"`
	ExerciseID  string   `json:"exercise_id"`
	UserID      string   `json:"user_id"`
	Kind        string   `json:"kind"`
	Score       int      `json:"score"`
	IsValid     bool     `json:"is_valid"`
	Message     string   `json:"message"`
	Feedback    []string `json:"feedback"`
	Suggestions []string `json:"suggestions"`
	ElapsedMs   int64    `json:"elapsed_ms"`
	CreatedAt   int64    `json:"created_at"` // Unix millis
}

// AttemptFilter narrows attempt queries. Zero values match everything.
type AttemptFilter struct {
	ExerciseID string
	UserID     string
	Limit      int
}

// AttemptStats aggregates attempts for one exercise
type AttemptStats struct {
	ExerciseID string  `json:"exercise_id"`
	Attempts   int     `json:"attempts"`
	Passes     int     `json:"passes"`
	AvgScore   float64 `json:"avg_score"`
	BestScore  int     `json:"best_score"`
}
