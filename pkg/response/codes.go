package response

// 业务错误码：1xxxx 通用，11xxx 认证，12xxx 订单，13xxx 午餐时间，14xxx 报表
const (
	CodeOK = 0

	CodeInvalidParams   = 10001
	CodeNotFound        = 10004
	CodeConflict        = 10009
	CodeTooManyRequests = 10029
	CodeInternal        = 50000

	CodeUnauthorized       = 11001
	CodeTokenExpired       = 11002
	CodeTokenInvalid       = 11003
	CodeTokenRevoked       = 11004
	CodeInvalidCredentials = 11005
	CodeForbidden          = 11006

	CodeEmptyCart           = 12001
	CodeMenuNotFound        = 12002
	CodeIncompleteSelection = 12003
	CodeDinerNotAllowed     = 12004
	CodeOrderNotFound       = 12005
	CodeOrderForbidden      = 12006

	CodeSchoolYearNotFound = 13001
	CodeDinerNotFound      = 13002
	CodeInvalidSchedule    = 13003
	CodeVersionConflict    = 13004
	CodeDateOutOfYear      = 13005
	CodeRangeTooLarge      = 13006

	CodeReportFailed    = 14001
	CodeArchiveDisabled = 14002
)
