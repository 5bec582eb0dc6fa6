package structs

// PublicNodeApi is a relay's directory entry as it travels over HTTP.
type PublicNodeApi struct {
	NodeID int    `json:"nodeId"`
	PubKey string `json:"pubKey"`
}

// NodeRegistryApi is the response of GET /getNodeRegistry.
type NodeRegistryApi struct {
	Nodes []PublicNodeApi `json:"nodes"`
}

// RegisterResponseApi acknowledges POST /registerNode.
type RegisterResponseApi struct {
	Message string `json:"message"`
}
