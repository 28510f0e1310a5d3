package actor

import "strings"

type Kind string

const (
	KindHuman       Kind = "human"
	KindAgent       Kind = "agent"
	KindSystem      Kind = "system"
	KindExternalAPI Kind = "api"
)

// Actor identifies who authored a message or action. UserID is only
// meaningful for KindHuman; agent/system/api actors are singletons per tenant.
type Actor struct {
	Kind   Kind
	UserID string
}

func Human(userID string) Actor {
	return Actor{Kind: KindHuman, UserID: strings.TrimSpace(userID)}
}

func Agent() Actor {
	return Actor{Kind: KindAgent}
}

func System() Actor {
	return Actor{Kind: KindSystem}
}

func ExternalAPI() Actor {
	return Actor{Kind: KindExternalAPI}
}

func (a Actor) IsHuman() bool {
	return a.Kind == KindHuman
}

func ParseKind(raw string) (Kind, bool) {
	switch Kind(strings.TrimSpace(strings.ToLower(raw))) {
	case KindHuman:
		return KindHuman, true
	case KindAgent:
		return KindAgent, true
	case KindSystem:
		return KindSystem, true
	case KindExternalAPI:
		return KindExternalAPI, true
	default:
		return "", false
	}
}
