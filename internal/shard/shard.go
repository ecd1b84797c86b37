// Package shard assigns subscribers to usage nodes by billing account number.
package shard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	auditdomain "github.com/smallbiznis/auldata/internal/audit/domain"
)

// Node is a usage store label.
type Node string

const (
	NodeA Node = "A"
	NodeB Node = "B"
	NodeC Node = "C"
)

// Nodes is the fixed node order; index i holds every BAN with BAN mod 3 == i.
var Nodes = []Node{NodeA, NodeB, NodeC}

var ErrInvalidBAN = errors.New("invalid_ban")

// Of returns the node for a decimal BAN. Negative BANs use the non-negative
// remainder so that -1 lands on C.
func Of(ban string) (Node, error) {
	trimmed := strings.TrimSpace(ban)
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidBAN, ban)
	}
	index := ((n % int64(len(Nodes))) + int64(len(Nodes))) % int64(len(Nodes))
	return Nodes[index], nil
}

// Partition groups events by node, preserving input order inside each group.
// Every node is present in the result, possibly with an empty list.
func Partition(events []auditdomain.SubscriberEvent) (map[Node][]auditdomain.SubscriberEvent, error) {
	out := make(map[Node][]auditdomain.SubscriberEvent, len(Nodes))
	for _, node := range Nodes {
		out[node] = nil
	}
	for _, event := range events {
		node, err := Of(event.BAN)
		if err != nil {
			return nil, fmt.Errorf("shard: subscriber %s: %w", event.SubscriberID, err)
		}
		out[node] = append(out[node], event)
	}
	return out, nil
}
