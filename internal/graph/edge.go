package graph

// EdgeType represents the kind of relationship between nodes
type EdgeType string

const (
	EdgeTypeImports         EdgeType = "imports"
	EdgeTypeDBRead          EdgeType = "db_read"
	EdgeTypeDBWrite         EdgeType = "db_write"
	EdgeTypeEndpointHandler EdgeType = "endpoint_handler"
	EdgeTypeAPICall         EdgeType = "api_call"
	EdgeTypeCacheRead       EdgeType = "cache_read"
	EdgeTypeCacheWrite      EdgeType = "cache_write"
	EdgeTypeWebhookReceive  EdgeType = "webhook_receive"
	EdgeTypeWebhookSend     EdgeType = "webhook_send"
	EdgeTypeEventPublish    EdgeType = "event_publish"
	EdgeTypeEventSubscribe  EdgeType = "event_subscribe"
	EdgeTypeInherits        EdgeType = "inherits"
	EdgeTypeCalls           EdgeType = "calls"
	EdgeTypeMiddlewareChain EdgeType = "middleware_chain"
)

// EdgeColors is the display palette written into every snapshot
var EdgeColors = map[EdgeType]string{
	EdgeTypeImports:         "#556677",
	EdgeTypeDBRead:          "#00aaff",
	EdgeTypeDBWrite:         "#ff8800",
	EdgeTypeEndpointHandler: "#44ff88",
	EdgeTypeAPICall:         "#ffdd44",
	EdgeTypeCacheRead:       "#6688aa",
	EdgeTypeCacheWrite:      "#8866aa",
	EdgeTypeWebhookReceive:  "#ff6644",
	EdgeTypeWebhookSend:     "#ff4422",
	EdgeTypeEventPublish:    "#ff88cc",
	EdgeTypeEventSubscribe:  "#cc88ff",
	EdgeTypeInherits:        "#aaaaff",
	EdgeTypeCalls:           "#778899",
	EdgeTypeMiddlewareChain: "#6666ff",
}

// Edge represents a directed relationship between two nodes
type Edge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Type     EdgeType `json:"type"`
	Metadata Metadata `json:"metadata"`
}

// edgeKey is the uniqueness key of an edge
type edgeKey struct {
	source, target string
	typ            EdgeType
}

func (e Edge) key() edgeKey {
	return edgeKey{source: e.Source, target: e.Target, typ: e.Type}
}
