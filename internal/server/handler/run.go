package handler

import (
	"github.com/gin-gonic/gin"

	"gatekeep/internal/common"
	"gatekeep/internal/server/model"
	"gatekeep/pkg/api"
	"gatekeep/pkg/event"
)

// TriggerRun starts a run by hand for an authenticated user.
func (h *Handler) TriggerRun(c *gin.Context) {
	var req api.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, common.NewErrNo(common.RequestInvalid))
		return
	}
	if req.Revision == "" || req.Ref == "" {
		common.Error(c, common.NewErrNo(common.RequestInvalid))
		return
	}

	runUUID, err := h.enqueueRun(c, event.Push{
		Type:     event.TypePush,
		Revision: req.Revision,
		Ref:      req.Ref,
	}, event.TriggerManual)
	if err != nil {
		common.Error(c, err)
		return
	}
	common.Success(c, api.TriggerResponse{RunUUID: runUUID})
}

// ListRuns returns recent runs, in-flight first.
func (h *Handler) ListRuns(c *gin.Context) {
	runs, err := h.runs.ListRecent(c, 50)
	if err != nil {
		common.Error(c, common.NewErrNo(common.GetHistoryFail))
		return
	}

	var briefs []api.RunBrief
	for _, run := range runs {
		briefs = append(briefs, runBrief(run))
	}

	pendingList := make([]api.RunBrief, 0)
	otherList := make([]api.RunBrief, 0)
	for _, brief := range briefs {
		if brief.Verdict == "pending" {
			pendingList = append(pendingList, brief)
		} else {
			otherList = append(otherList, brief)
		}
	}
	common.Success(c, append(pendingList, otherList...))
}

// GetRun returns one run with its per-job breakdown, enough for a human to
// tell which check category rejected the change without re-running anything.
func (h *Handler) GetRun(c *gin.Context) {
	runUUID := c.Param("uuid")

	run, err := h.runs.GetByUUID(c, runUUID)
	if err != nil {
		common.Error(c, err)
		return
	}

	jobExecs, err := h.jobs.GetByRunUUID(c, runUUID)
	if err != nil {
		common.Error(c, common.NewErrNo(common.GetHistoryFail))
		return
	}

	detail := api.RunDetail{RunBrief: runBrief(run)}
	for _, jobExec := range jobExecs {
		report := api.JobReport{
			JobName:     jobExec.JobName,
			Outcome:     jobExec.Outcome,
			FailureKind: jobExec.FailureKind,
			Stdout:      jobExec.Stdout,
			Stderr:      jobExec.Stderr,
		}
		if report.Outcome != "pending" {
			report.StartTime = jobExec.CreatedAt.Format("2006-01-02 15:04:05")
		}
		if report.Outcome == "passed" || report.Outcome == "failed" || report.Outcome == "errored" {
			report.EndTime = jobExec.UpdatedAt.Format("2006-01-02 15:04:05")
		}
		detail.Jobs = append(detail.Jobs, report)
	}
	common.Success(c, detail)
}

func runBrief(run *model.Run) api.RunBrief {
	brief := api.RunBrief{
		RunUUID:     run.RunUUID,
		Revision:    run.Revision,
		Ref:         run.Ref,
		TriggerType: run.TriggerType,
		Verdict:     run.Verdict,
		StartTime:   run.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if run.Verdict != "pending" {
		brief.EndTime = run.UpdatedAt.Format("2006-01-02 15:04:05")
	}
	return brief
}
