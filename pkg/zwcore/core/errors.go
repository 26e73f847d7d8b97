package core

import "fmt"

// NodeNotFoundError is raised by Registry.GetOrThrow when a node id is absent.
type NodeNotFoundError struct {
	NodeID uint8
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("controller: node %d not found", e.NodeID)
}

// EndpointNotFoundError is raised when an association target endpoint does not exist.
type EndpointNotFoundError struct {
	NodeID   uint8
	Endpoint uint8
}

func (e *EndpointNotFoundError) Error() string {
	return fmt.Sprintf("controller: node %d has no endpoint %d", e.NodeID, e.Endpoint)
}

// InclusionFailedError is raised when the stick reports inclusion failure.
type InclusionFailedError struct {
	Reason string
}

func (e *InclusionFailedError) Error() string {
	if e.Reason == "" {
		return "controller: inclusion failed"
	}
	return fmt.Sprintf("controller: inclusion failed: %s", e.Reason)
}

// ExclusionFailedError is raised when the stick reports exclusion failure.
type ExclusionFailedError struct {
	Reason string
}

func (e *ExclusionFailedError) Error() string {
	if e.Reason == "" {
		return "controller: exclusion failed"
	}
	return fmt.Sprintf("controller: exclusion failed: %s", e.Reason)
}

// MessageExpiredError categorizes an S0 bootstrap message that timed out waiting for its expiry.
type MessageExpiredError struct {
	Step string
}

func (e *MessageExpiredError) Error() string {
	return fmt.Sprintf("controller: message expired during %s", e.Step)
}

// MessageDroppedError categorizes an S0 bootstrap message dropped by the transport.
type MessageDroppedError struct {
	Step string
}

func (e *MessageDroppedError) Error() string {
	return fmt.Sprintf("controller: message dropped during %s", e.Step)
}

// NodeTimeoutError categorizes an S0 bootstrap step that timed out waiting on the node.
type NodeTimeoutError struct {
	Step string
}

func (e *NodeTimeoutError) Error() string {
	return fmt.Sprintf("controller: node timeout during %s", e.Step)
}

// DriverNotReadyError is raised when a capability query is issued before interview completes.
type DriverNotReadyError struct{}

func (e *DriverNotReadyError) Error() string {
	return "controller: driver not ready, interview has not completed"
}

// InvalidCacheError is raised when a cached node entry's id disagrees with its key.
type InvalidCacheError struct {
	Key        string
	Serialized uint8
}

func (e *InvalidCacheError) Error() string {
	return fmt.Sprintf("controller: invalid cache, key %q does not match serialized id %d", e.Key, e.Serialized)
}

// CCNotSupportedError is raised when an association operation targets an unsupported CC.
type CCNotSupportedError struct {
	NodeID uint8
	CC     string
}

func (e *CCNotSupportedError) Error() string {
	return fmt.Sprintf("controller: node %d does not support %s", e.NodeID, e.CC)
}

// AssociationInvalidGroupError is raised when a group index is out of range.
type AssociationInvalidGroupError struct {
	NodeID uint8
	Group  uint8
}

func (e *AssociationInvalidGroupError) Error() string {
	return fmt.Sprintf("controller: node %d has no association group %d", e.NodeID, e.Group)
}

// AssociationNotAllowedError is raised when the admissibility check rejects a target.
type AssociationNotAllowedError struct {
	NodeID  uint8
	Group   uint8
	Message string
}

func (e *AssociationNotAllowedError) Error() string {
	return fmt.Sprintf("controller: association to node %d group %d not allowed: %s", e.NodeID, e.Group, e.Message)
}

// ReplaceFailedNodeOKError is raised when the target of replaceFailedNode responds as OK.
type ReplaceFailedNodeOKError struct {
	NodeID uint8
}

func (e *ReplaceFailedNodeOKError) Error() string {
	return fmt.Sprintf("controller: node %d responded to a ping, it is not failed", e.NodeID)
}

// ReplaceFailedNodeFailedError is raised when the stick fails to replace a failed node.
type ReplaceFailedNodeFailedError struct {
	NodeID  uint8
	Message string
}

func (e *ReplaceFailedNodeFailedError) Error() string {
	return fmt.Sprintf("controller: failed to replace node %d: %s", e.NodeID, e.Message)
}

// RemoveFailedNodeOKError is raised when the target of removeFailedNode responds as OK.
type RemoveFailedNodeOKError struct {
	NodeID uint8
}

func (e *RemoveFailedNodeOKError) Error() string {
	return fmt.Sprintf("controller: node %d responded to a ping, it is not failed", e.NodeID)
}

// RemoveFailedNodeFailedError is raised when the stick refuses to remove a node as failed.
type RemoveFailedNodeFailedError struct {
	NodeID  uint8
	Message string
}

func (e *RemoveFailedNodeFailedError) Error() string {
	return fmt.Sprintf("controller: failed to remove node %d: %s", e.NodeID, e.Message)
}
