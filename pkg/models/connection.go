package models

// Connection is a directed edge from one node's output port to another
// node's input port. An optional guard condition prunes the edge during a
// run when it evaluates to false.
type Connection struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	SourcePortID string `json:"source_port_id"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	TargetPortID string `json:"target_port_id"`
	Condition    string `json:"condition,omitempty"`
}

// PortDirection distinguishes input from output ports.
type PortDirection string

const (
	PortDirectionInput  PortDirection = "input"
	PortDirectionOutput PortDirection = "output"
)

// Port is a typed attachment point on a node.
type Port struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Direction   PortDirection `json:"direction"`
	DataType    string        `json:"data_type,omitempty"`
	Required    bool          `json:"required,omitempty"`
	Description string        `json:"description,omitempty"`
}
