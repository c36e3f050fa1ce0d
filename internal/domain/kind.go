package domain

import "fmt"

// NodeKind — тип узла на канвасе.
//
// Набор типов закрыт: каждый тип перечислен ниже, диспетчер executor'ов
// обязан обработать каждый из них явно.
type NodeKind string

const (
	// KindNewFlow — служебный placeholder пустого канваса.
	KindNewFlow NodeKind = "new-flow"

	// Триггеры — узлы, с которых начинается flow.
	KindManualTrigger   NodeKind = "manual-trigger"
	KindScheduleTrigger NodeKind = "schedule-trigger"
	KindWebhookTrigger  NodeKind = "webhook-trigger"
	KindFormTrigger     NodeKind = "form-trigger"

	// AI-инструменты.
	KindOpenAITool NodeKind = "open-ai-tool"
	KindGeminiTool NodeKind = "gemini-ai-tool"
	KindMemoryTool NodeKind = "memory-ai-tool"
	KindToolsTool  NodeKind = "tools-ai-tool"

	// Программируемые узлы.
	KindHTTP    NodeKind = "http-programming-tool"
	KindScript  NodeKind = "javascript-programming-tool"
	KindWebhook NodeKind = "webhook-programming-tool"

	// Прочие инструменты.
	KindMail        NodeKind = "mail-other-tool"
	KindNotion      NodeKind = "notion-other-tool"
	KindSleep       NodeKind = "sleep-other-tool"
	KindText        NodeKind = "text-other-tool"
	KindConditional NodeKind = "conditional-other-tool"
)

// AllNodeKinds возвращает все известные типы узлов.
func AllNodeKinds() []NodeKind {
	return []NodeKind{
		KindNewFlow,
		KindManualTrigger, KindScheduleTrigger, KindWebhookTrigger, KindFormTrigger,
		KindOpenAITool, KindGeminiTool, KindMemoryTool, KindToolsTool,
		KindHTTP, KindScript, KindWebhook,
		KindMail, KindNotion, KindSleep, KindText, KindConditional,
	}
}

// IsValid проверяет, что тип узла известен.
func (k NodeKind) IsValid() bool {
	for _, known := range AllNodeKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// IsTrigger возвращает true для узлов, запускающих flow.
// У триггера нет входного контекста.
func (k NodeKind) IsTrigger() bool {
	switch k {
	case KindManualTrigger, KindScheduleTrigger, KindWebhookTrigger, KindFormTrigger:
		return true
	default:
		return false
	}
}

// String реализует fmt.Stringer.
func (k NodeKind) String() string {
	return string(k)
}

// ParseNodeKind преобразует строку в NodeKind.
func ParseNodeKind(s string) (NodeKind, error) {
	k := NodeKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeKind, s)
	}
	return k, nil
}
