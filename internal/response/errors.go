package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"
	ErrNotQuizCreator    ErrCode = "NOT_QUIZ_CREATOR"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Quiz lifecycle ────────────────────────────────────────────────
	ErrQuizNotOpen       ErrCode = "QUIZ_NOT_OPEN"
	ErrQuizNotDraft      ErrCode = "QUIZ_NOT_DRAFT"
	ErrInvalidQuiz       ErrCode = "INVALID_QUIZ"
	ErrAttemptsExhausted ErrCode = "ATTEMPTS_EXHAUSTED"

	// ─── Submission & grading ──────────────────────────────────────────
	ErrMalformedSubmission ErrCode = "MALFORMED_SUBMISSION"
	ErrQuestionNotFound    ErrCode = "QUESTION_NOT_FOUND"
	ErrNotEssayQuestion    ErrCode = "NOT_ESSAY_QUESTION"
	ErrScoreOutOfRange     ErrCode = "SCORE_OUT_OF_RANGE"
	ErrGradingConflict     ErrCode = "GRADING_CONFLICT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."
	case ErrNotQuizCreator:
		return "You are not the creator of this quiz."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The resource was not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Quiz lifecycle ────────────────────────────────────────────────
	case ErrQuizNotOpen:
		return "This quiz is not currently accepting submissions."
	case ErrQuizNotDraft:
		return "This quiz is not in DRAFT status."
	case ErrInvalidQuiz:
		return "The quiz definition is invalid."
	case ErrAttemptsExhausted:
		return "You have used all allowed attempts for this quiz."

	// ─── Submission & grading ──────────────────────────────────────────
	case ErrMalformedSubmission:
		return "The submitted answers do not match the quiz questions."
	case ErrQuestionNotFound:
		return "The referenced question does not exist in this quiz."
	case ErrNotEssayQuestion:
		return "Only essay questions can be graded manually."
	case ErrScoreOutOfRange:
		return "The score is outside the question's point range."
	case ErrGradingConflict:
		return "The submission was modified by another grader. Please reload and retry."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
