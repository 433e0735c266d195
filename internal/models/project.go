package models

// ProjectDescriptor captures what was learned about a repository before any file is reviewed.
type ProjectDescriptor struct {
	SourceURL        string `json:"source_url"`
	Branch           string `json:"branch,omitempty"`
	RequirementsText string `json:"requirements_text"`
	DescriptionText  string `json:"description_text"`
	WorkDir          string `json:"work_dir"`
	TaskFile         string `json:"task_file"`
}

// FileRecord holds one collected project file and its model-written summary.
type FileRecord struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Summary string `json:"summary"`
}

// Requirements is the ordered list of atomic tasks derived from the requirements text.
type Requirements []string

// FileFeedbackEntry is the critique produced for one file.
type FileFeedbackEntry struct {
	Path     string `json:"path"`
	Feedback string `json:"feedback"`
}

// FileFeedback keeps per-file critiques in collection order.
type FileFeedback []FileFeedbackEntry


// Summaries maps each file path to its summary, the input used for file selection.
func Summaries(files []*FileRecord) map[string]string {
	out := make(map[string]string, len(files))
	for _, f := range files {
		if f == nil {
			continue
		}
		out[f.Path] = f.Summary
	}
	return out
}
