package graph

import "strings"

// Category is the coarse functional role of a node
type Category string

const (
	CategoryTrigger   Category = "trigger"
	CategoryAI        Category = "ai"
	CategoryData      Category = "data"
	CategoryHTTP      Category = "http"
	CategoryCondition Category = "condition"
	CategoryMerge     Category = "merge"
	CategoryOther     Category = "other"
)

func (c Category) String() string { return string(c) }

// Categories lists every category in display order
func Categories() []Category {
	return []Category{
		CategoryTrigger, CategoryAI, CategoryData, CategoryHTTP,
		CategoryCondition, CategoryMerge, CategoryOther,
	}
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryTrigger, CategoryAI, CategoryData, CategoryHTTP,
		CategoryCondition, CategoryMerge, CategoryOther:
		return true
	}
	return false
}

// substring table in priority order; first match wins. Authored rules depend
// on this exact order.
var categoryPatterns = []struct {
	category Category
	needles  []string
}{
	{CategoryTrigger, []string{"trigger"}},
	{CategoryAI, []string{"ai", "gpt", "claude"}},
	{CategoryData, []string{"data", "json", "text"}},
	{CategoryHTTP, []string{"http", "api"}},
	{CategoryCondition, []string{"condition", "if"}},
	{CategoryMerge, []string{"merge", "join"}},
}

// CategoryOf classifies a node type string by substring match. It is the
// fallback for node types that carry no explicit tag.
func CategoryOf(nodeType string) Category {
	for _, p := range categoryPatterns {
		for _, needle := range p.needles {
			if strings.Contains(nodeType, needle) {
				return p.category
			}
		}
	}
	return CategoryOther
}

// NodeTypeDef is a node type known to the editor palette
type NodeTypeDef struct {
	Type     string   `json:"type" yaml:"type"`
	Label    string   `json:"label,omitempty" yaml:"label,omitempty"`
	Category Category `json:"category" yaml:"category"`
}

// builtinNodeTypes tags the palette's node types explicitly. Several of them
// would be misfiled by substring matching ("email_send" contains "ai",
// "notification" contains "if").
var builtinNodeTypes = []NodeTypeDef{
	{Type: "manual_trigger", Label: "Manual Trigger", Category: CategoryTrigger},
	{Type: "webhook_trigger", Label: "Webhook Trigger", Category: CategoryTrigger},
	{Type: "schedule_trigger", Label: "Schedule Trigger", Category: CategoryTrigger},
	{Type: "gpt_model", Label: "GPT-4", Category: CategoryAI},
	{Type: "claude_model", Label: "Claude", Category: CategoryAI},
	{Type: "ai_model", Label: "AI Model", Category: CategoryAI},
	{Type: "sentiment_analysis", Label: "Sentiment Analysis", Category: CategoryAI},
	{Type: "text_input", Label: "Text Input", Category: CategoryData},
	{Type: "text_filter", Label: "Text Filter", Category: CategoryData},
	{Type: "json_parser", Label: "JSON Parser", Category: CategoryData},
	{Type: "data_mapper", Label: "Data Mapper", Category: CategoryData},
	{Type: "http_request", Label: "HTTP Request", Category: CategoryHTTP},
	{Type: "api_call", Label: "API Call", Category: CategoryHTTP},
	{Type: "condition", Label: "Condition", Category: CategoryCondition},
	{Type: "if_else", Label: "If / Else", Category: CategoryCondition},
	{Type: "merge", Label: "Merge", Category: CategoryMerge},
	{Type: "join", Label: "Join", Category: CategoryMerge},
	{Type: "try_catch", Label: "Try-Catch", Category: CategoryOther},
	{Type: "error_handler", Label: "Error Handler", Category: CategoryOther},
	{Type: "email_send", Label: "Send Email", Category: CategoryOther},
	{Type: "slack_message", Label: "Slack", Category: CategoryOther},
	{Type: "notification", Label: "Notification", Category: CategoryOther},
}

// Classifier resolves node categories: explicit node tag, then the node type
// registry, then substring matching.
type Classifier struct {
	types map[string]Category
}

// NewClassifier creates a Classifier from node type definitions. Definitions
// with an unknown category are ignored.
func NewClassifier(defs []NodeTypeDef) *Classifier {
	c := &Classifier{types: make(map[string]Category, len(defs))}
	for _, d := range defs {
		c.Register(d)
	}
	return c
}

// DefaultClassifier returns a Classifier seeded with the builtin palette
func DefaultClassifier() *Classifier {
	return NewClassifier(builtinNodeTypes)
}

// Register adds or replaces a node type definition
func (c *Classifier) Register(d NodeTypeDef) {
	if d.Type == "" || !d.Category.Valid() {
		return
	}
	c.types[d.Type] = d.Category
}

// Lookup returns the registered category for a node type
func (c *Classifier) Lookup(nodeType string) (Category, bool) {
	cat, ok := c.types[nodeType]
	return cat, ok
}

// Classify returns the category of n
func (c *Classifier) Classify(n Node) Category {
	if n.Category.Valid() {
		return n.Category
	}
	if cat, ok := c.Lookup(n.Type); ok {
		return cat
	}
	return CategoryOf(n.Type)
}

// BuiltinNodeTypes returns a copy of the builtin palette definitions
func BuiltinNodeTypes() []NodeTypeDef {
	out := make([]NodeTypeDef, len(builtinNodeTypes))
	copy(out, builtinNodeTypes)
	return out
}
