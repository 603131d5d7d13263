package store

import "dytto/internal/models"

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneRelationship(r *models.Relationship) *models.Relationship {
	out := *r
	out.Categories = cloneStrings(r.Categories)
	out.Tags = cloneStrings(r.Tags)
	out.LastInteractionAt = clonePtr(r.LastInteractionAt)
	return &out
}

func cloneInteraction(in *models.Interaction) *models.Interaction {
	out := *in
	out.Topics = cloneStrings(in.Topics)
	out.Tags = cloneStrings(in.Tags)
	if in.Analysis != nil {
		a := *in.Analysis
		a.EmotionalTone = cloneStrings(in.Analysis.EmotionalTone)
		a.Topics = cloneStrings(in.Analysis.Topics)
		a.Suggestions = cloneStrings(in.Analysis.Suggestions)
		out.Analysis = &a
	}
	return &out
}

func cloneQuest(q *models.Quest) *models.Quest {
	out := *q
	out.Deadline = clonePtr(q.Deadline)
	out.MilestoneLevel = clonePtr(q.MilestoneLevel)
	out.CompletedAt = clonePtr(q.CompletedAt)
	return &out
}
