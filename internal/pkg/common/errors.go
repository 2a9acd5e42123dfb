package common

import "fmt"

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 回傳被包裝的原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError 表示載入靜態資料時的驗證錯誤（嚴格解析，啟動即失敗）
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{
		message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// 預定義錯誤代碼
const (
	ErrCodeInvalidConfig    = "INVALID_CONFIG"    // 設定錯誤
	ErrCodeOntologyLoad     = "ONTOLOGY_LOAD"     // 本體論資料載入失敗
	ErrCodeRuleTableLoad    = "RULE_TABLE_LOAD"   // 規則表載入失敗
	ErrCodeCompoundLoad     = "COMPOUND_LOAD"     // 複合菜色表載入失敗
	ErrCodeAIServiceError   = "AI_SERVICE_ERROR"  // AI 服務錯誤
	ErrCodeCacheDisabled    = "CACHE_DISABLED"    // 緩存已禁用
	ErrCodeCacheFull        = "CACHE_FULL"        // 緩存容量已滿
	ErrCodeQueueFull        = "QUEUE_FULL"        // 請求隊列已滿
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"   // 請求超時
	ErrCodeEmptyInput       = "EMPTY_INPUT"       // 輸入為空
	ErrCodeNotFoodQuery     = "NOT_FOOD_QUERY"    // 不是食物組合問題
	ErrCodeUnparsableOutput = "UNPARSABLE_OUTPUT" // 模型輸出無法解析
)

// 預定義錯誤
var (
	ErrCacheDisabled    = NewError(ErrCodeCacheDisabled, "緩存已禁用", nil)
	ErrCacheFull        = NewError(ErrCodeCacheFull, "緩存容量已滿", nil)
	ErrQueueFull        = NewError(ErrCodeQueueFull, "請求隊列已滿", nil)
	ErrAIServiceError   = NewError(ErrCodeAIServiceError, "AI 服務錯誤", nil)
	ErrEmptyInput       = NewError(ErrCodeEmptyInput, "輸入為空", nil)
	ErrUnparsableOutput = NewError(ErrCodeUnparsableOutput, "模型輸出無法解析", nil)
)
