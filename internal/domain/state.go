package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// KeyValue — строка таблицы заголовков или query-параметров.
type KeyValue struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// IsEnabled возвращает true, если строка включена. Отсутствие флага — включена.
func (kv KeyValue) IsEnabled() bool {
	return kv.Enabled == nil || *kv.Enabled
}

// HTTPState — конфигурация узла http-programming-tool.
type HTTPState struct {
	URL                string     `json:"url" validate:"required"`
	HTTPMethod         string     `json:"httpMethod"`
	Headers            []KeyValue `json:"headers"`
	QueryParams        []KeyValue `json:"queryParams"`
	BodyContent        any        `json:"bodyContent"`
	IncludeHeaders     *bool      `json:"includeHeaders"`
	IncludeQueryParams *bool      `json:"includeQueryParams"`
	IncludeBody        *bool      `json:"includeBody"`
	AuthType           AuthType   `json:"authType" validate:"omitempty,oneof=none bearer api-key basic custom"`
	CredentialID       string     `json:"credentialId"`
	TimeoutSec         float64    `json:"timeoutSec" validate:"gte=0"`
}

// Method возвращает HTTP-метод в верхнем регистре, по умолчанию GET.
func (s HTTPState) Method() string {
	if s.HTTPMethod == "" {
		return "GET"
	}
	return strings.ToUpper(s.HTTPMethod)
}

// SendsHeaders возвращает true, если заголовки из таблицы отправляются.
// Отсутствующий флаг означает «да».
func (s HTTPState) SendsHeaders() bool {
	return s.IncludeHeaders == nil || *s.IncludeHeaders
}

// SendsQueryParams возвращает true, если query-параметры добавляются к URL.
func (s HTTPState) SendsQueryParams() bool {
	return s.IncludeQueryParams == nil || *s.IncludeQueryParams
}

// SendsBody возвращает true, если тело отправляется. GET и HEAD тело не несут.
func (s HTTPState) SendsBody() bool {
	if s.BodyContent == nil {
		return false
	}
	if str, ok := s.BodyContent.(string); ok && strings.TrimSpace(str) == "" {
		return false
	}
	if m := s.Method(); m == "GET" || m == "HEAD" {
		return false
	}
	return s.IncludeBody == nil || *s.IncludeBody
}

// Condition — одно условие conditional-узла.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator" validate:"required"`
	Value    string `json:"value"`
}

// ConditionState — конфигурация узла conditional-other-tool.
//
// LogicalOperators[i] стоит после условия i и решает, вычислять ли
// условие i+1. Пустой или отсутствующий оператор завершает вычисление.
type ConditionState struct {
	Conditions       []Condition `json:"conditions" validate:"required,min=1,dive"`
	LogicalOperators []string    `json:"logicalOperator"`
}

// DefaultScriptFunction — имя функции скрипта по умолчанию.
const DefaultScriptFunction = "processData"

// DefaultScriptTestInput — тестовый вход скрипта по умолчанию.
const DefaultScriptTestInput = `{"name":"John","age":30}`

// ScriptState — конфигурация узла javascript-programming-tool.
type ScriptState struct {
	Code         string `json:"code" validate:"required"`
	FunctionName string `json:"functionName"`
	Description  string `json:"description"`
	TestInput    string `json:"testInput"`
}

// Function возвращает имя вызываемой функции.
func (s ScriptState) Function() string {
	if s.FunctionName == "" {
		return DefaultScriptFunction
	}
	return s.FunctionName
}

// Input возвращает JSON тестового входа.
func (s ScriptState) Input() string {
	if strings.TrimSpace(s.TestInput) == "" {
		return DefaultScriptTestInput
	}
	return s.TestInput
}

// MailState — конфигурация узла mail-other-tool.
type MailState struct {
	FromEmail    string   `json:"fromEmail" validate:"required"`
	ToEmails     []string `json:"toEmails" validate:"required,min=1"`
	CCEmails     []string `json:"ccEmails"`
	BCCEmails    []string `json:"bccEmails"`
	Subject      string   `json:"subject" validate:"required"`
	Body         string   `json:"body" validate:"required"`
	CredentialID string   `json:"credentialId" validate:"required"`
	AuthType     AuthType `json:"authType" validate:"omitempty,oneof=none bearer api-key basic custom"`
}

// Типы расписаний.
const (
	ScheduleOnce     = "once"
	ScheduleInterval = "interval"
	ScheduleDaily    = "daily"
	ScheduleCron     = "cron"
)

// Статусы расписания.
const (
	ScheduleActive = "active"
	SchedulePaused = "paused"
)

// DefaultTimezone — часовой пояс расписания по умолчанию.
const DefaultTimezone = "Asia/Kolkata"

// ScheduleState — конфигурация узла schedule-trigger.
type ScheduleState struct {
	ScheduleType   string `json:"scheduleType" validate:"required,oneof=once interval daily cron"`
	ScheduleStatus string `json:"scheduleStatus" validate:"omitempty,oneof=active paused"`
	SpecificDate   string `json:"specificDate" validate:"required_if=ScheduleType once"`
	SpecificTime   string `json:"specificTime" validate:"required_if=ScheduleType daily"`
	IntervalValue  int    `json:"intervalValue" validate:"required_if=ScheduleType interval,gte=0"`
	IntervalUnit   string `json:"intervalUnit" validate:"omitempty,oneof=minutes hours days"`
	CronExpression string `json:"cronExpression" validate:"required_if=ScheduleType cron"`
	Timezone       string `json:"timezone"`
}

// FormField — поле формы или текстового узла.
type FormField struct {
	Label    string `json:"label" validate:"required"`
	Type     string `json:"type"`
	Value    string `json:"value"`
	Required bool   `json:"required"`
}

// FormState — конфигурация узла form-trigger.
type FormState struct {
	FormTitle       string      `json:"formTitle"`
	FormDescription string      `json:"formDescription"`
	Fields          []FormField `json:"fields" validate:"dive"`
}

// WebhookState — конфигурация узла webhook-trigger.
type WebhookState struct {
	Path       string `json:"path"`
	HTTPMethod string `json:"httpMethod"`
}

// SleepState — конфигурация узла sleep-other-tool.
type SleepState struct {
	DurationSec float64 `json:"durationSec" validate:"gte=0"`
}

// TextState — конфигурация узла text-other-tool.
type TextState struct {
	Fields []FormField `json:"fields" validate:"dive"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func stateValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return jsonName(f.Tag.Get("json"))
		})
	})
	return validate
}

// jsonName возвращает имя поля из json-тега.
func jsonName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

// DecodeState декодирует state узла в типизированную структуру и валидирует её.
//
// Числа и строки приводятся друг к другу (WeaklyTypedInput), строка через
// запятую превращается в []string. Ошибки возвращаются как *StateError.
func DecodeState(kind NodeKind, raw map[string]any, dst any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			boolToStringHook,
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("create state decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return &StateError{Kind: kind, Err: err}
	}

	if err := stateValidator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, formatFieldError(fe))
			}
			return &StateError{Kind: kind, Fields: fields, Err: err}
		}
		return &StateError{Kind: kind, Err: err}
	}

	return nil
}

// boolToStringHook сохраняет true/false текстом, а не "1"/"0".
func boolToStringHook(from, to reflect.Kind, data any) (any, error) {
	if from == reflect.Bool && to == reflect.String {
		return strconv.FormatBool(data.(bool)), nil
	}
	return data, nil
}

// formatFieldError формирует сообщение по одной ошибке валидации.
func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
