// Package model defines the core data types shared across coa.
package model

// Grade buckets a 0-100 commit score.
type Grade int

const (
	GradePoor Grade = iota
	GradeFair
	GradeGood
	GradeExcellent
)

func (g Grade) String() string {
	switch g {
	case GradePoor:
		return "poor"
	case GradeFair:
		return "fair"
	case GradeGood:
		return "good"
	case GradeExcellent:
		return "excellent"
	default:
		return "unknown"
	}
}

// GradeOf returns the grade for a score. Scores outside 0-100 are clamped.
func GradeOf(score int) Grade {
	switch {
	case score >= 85:
		return GradeExcellent
	case score >= 65:
		return GradeGood
	case score >= 40:
		return GradeFair
	default:
		return GradePoor
	}
}

// CommitComment is a reviewer comment attached to a span of the analysis text.
// Indices count UTF-16 code units of BasicDetail.RepoViewResult.
type CommitComment struct {
	StartIndex   int    `json:"commentStartIndex"`
	EndIndex     int    `json:"commentEndIndex"`
	Content      string `json:"commentContent"`
	TargetString string `json:"commentTargetString,omitempty"`
}

// RepoCard is the header card of an analysed repository.
type RepoCard struct {
	MemberNickname string `json:"memberNickname"`
	RepoViewID     int64  `json:"repoViewId,omitempty"`
	RepoViewPath   string `json:"repoViewPath,omitempty"`
	Title          string `json:"repoViewTitle"`
	Subtitle       string `json:"repoViewSubtitle,omitempty"`
	MemberCount    int    `json:"repoMemberCnt,omitempty"`
	StartDate      string `json:"repoStartDate,omitempty"`
	EndDate        string `json:"repoEndDate,omitempty"`
	IsMine         bool   `json:"isMine,omitempty"`
}

// BasicDetail carries the analysis body: README, result text and comments.
type BasicDetail struct {
	Readme           string           `json:"repoReadme"`
	RepoViewResult   string           `json:"repoViewResult"`
	CommentList      []*CommitComment `json:"commentList"`
	TotalCommitCount int64            `json:"repoViewTotalCommitCnt,omitempty"`
	CommitCount      int64            `json:"repoViewCommitCnt,omitempty"`
	MemberCount      int              `json:"repoViewMemberCnt,omitempty"`
}

// CommitScore is only returned to the owner of the repository.
type CommitScore struct {
	Readability int    `json:"readability"`
	Performance int    `json:"performance"`
	Reusability int    `json:"reusability"`
	Testability int    `json:"testability"`
	Exception   int    `json:"exception"`
	Total       int    `json:"total"`
	Comment     string `json:"scoreComment,omitempty"`
}

// RepoDetail is a finished analysis or a saved repo view.
type RepoDetail struct {
	RepoCard    RepoCard     `json:"repoCardDto"`
	BasicDetail BasicDetail  `json:"basicDetailDto"`
	CommitScore *CommitScore `json:"commitScoreDto,omitempty"`
}

// AnalysisCheck is the progress report of a running analysis.
type AnalysisCheck struct {
	AnalysisID string `json:"analysisId"`
	Percentage int    `json:"percentage"`
}

// BaseResponse is the envelope of every backend response.
type BaseResponse[T any] struct {
	IsSuccess bool   `json:"isSuccess"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Result    T      `json:"result"`
}
