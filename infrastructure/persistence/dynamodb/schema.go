// Package dynamodb implements the persistence ports on a single DynamoDB
// table.
//
// Key layout:
//
//	Conversation  PK=CONV#<id>     SK=META
//	Participant   PK=CONV#<id>     SK=MEMBER#<email>    GSI1PK=USER#<email> GSI1SK=CONV#<id>
//	Message       PK=CONV#<id>     SK=MSG#<ts>#<msgid>
//	User          PK=USER#<email>  SK=PROFILE
//
// Message sort keys embed a fixed-width UTC timestamp so lexicographic SK
// order is chronological order, with the message id breaking ties.
package dynamodb

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skMeta    = "META"
	skProfile = "PROFILE"

	prefixConversation = "CONV#"
	prefixUser         = "USER#"
	prefixMember       = "MEMBER#"
	prefixMessage      = "MSG#"

	// sortableTimeFormat is fixed-width so string order equals time order
	sortableTimeFormat = "2006-01-02T15:04:05.000000000Z"
)

func conversationPK(id string) string {
	return prefixConversation + id
}

func userPK(email string) string {
	return prefixUser + email
}

func memberSK(email string) string {
	return prefixMember + email
}

func messageSK(createdAt time.Time, id string) string {
	return prefixMessage + createdAt.UTC().Format(sortableTimeFormat) + "#" + id
}

// parseMessageSK recovers the composite key parts from a message sort key
func parseMessageSK(sk string) (id string, createdAt time.Time, err error) {
	rest, ok := strings.CutPrefix(sk, prefixMessage)
	if !ok {
		return "", time.Time{}, fmt.Errorf("not a message sort key: %s", sk)
	}
	ts, id, ok := strings.Cut(rest, "#")
	if !ok {
		return "", time.Time{}, fmt.Errorf("malformed message sort key: %s", sk)
	}
	createdAt, err = time.Parse(sortableTimeFormat, ts)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed message timestamp: %w", err)
	}
	return id, createdAt, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func boolAttr(item map[string]types.AttributeValue, name string) bool {
	if v, ok := item[name].(*types.AttributeValueMemberBOOL); ok {
		return v.Value
	}
	return false
}

func timeAttr(item map[string]types.AttributeValue, name string) time.Time {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339Nano, v.Value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// isConditionalCheckFailed reports whether a write was rejected by its
// condition expression
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// transactionConditionFailed reports whether a TransactWriteItems call was
// cancelled because a condition check failed
func transactionConditionFailed(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
