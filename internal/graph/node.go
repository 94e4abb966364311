package graph

// NodeType represents the role of a node in the dependency graph
type NodeType string

const (
	NodeTypeEndpoint    NodeType = "endpoint"
	NodeTypeCollection  NodeType = "collection"
	NodeTypeFile        NodeType = "file"
	NodeTypeRouter      NodeType = "router"
	NodeTypeScript      NodeType = "script"
	NodeTypeTask        NodeType = "task"
	NodeTypeCacheKey    NodeType = "cache_key"
	NodeTypeService     NodeType = "service"
	NodeTypeUtility     NodeType = "utility"
	NodeTypeWebhook     NodeType = "webhook"
	NodeTypeEvent       NodeType = "event"
	NodeTypeExternalAPI NodeType = "external_api"
	NodeTypeMiddleware  NodeType = "middleware"
	NodeTypeSerializer  NodeType = "serializer"
	NodeTypeTest        NodeType = "test"
	NodeTypeConfig      NodeType = "config"
	NodeTypeComponent   NodeType = "component"
	NodeTypeTemplate    NodeType = "template"
)

// NodeColors is the display palette written into every snapshot
var NodeColors = map[NodeType]string{
	NodeTypeEndpoint:    "#00d4ff",
	NodeTypeCollection:  "#ff4466",
	NodeTypeFile:        "#44ff88",
	NodeTypeRouter:      "#4488ff",
	NodeTypeScript:      "#aa66ff",
	NodeTypeTask:        "#ffaa00",
	NodeTypeCacheKey:    "#ff44ff",
	NodeTypeService:     "#00cc99",
	NodeTypeUtility:     "#aabbcc",
	NodeTypeWebhook:     "#ff6644",
	NodeTypeEvent:       "#ff88cc",
	NodeTypeExternalAPI: "#ffdd44",
	NodeTypeMiddleware:  "#6666ff",
	NodeTypeSerializer:  "#ffbb44",
	NodeTypeTest:        "#888899",
	NodeTypeConfig:      "#aa8866",
	NodeTypeComponent:   "#44ddaa",
	NodeTypeTemplate:    "#cc88ff",
}

// Node represents a file or a named entity (model, route, API) in the graph
type Node struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Type     NodeType `json:"type"`
	File     string   `json:"file"`     // relative path, empty if unknown
	Line     int      `json:"line"`     // 0 if unknown
	Metadata Metadata `json:"metadata"` // extractor-specific details
}
