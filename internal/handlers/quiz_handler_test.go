package handlers

import (
	"testing"
)

func TestParseQuizParams(t *testing.T) {
	c, _ := testContext(t, "/quizzes?page=2&size=10&search=algebra&active_only=true&instructor_id=instructor-1&sort_by=title&sort_order=asc")

	params := parseQuizParams(c)
	if params.Page != 2 || params.Size != 10 {
		t.Errorf("page/size = %d/%d, expected 2/10", params.Page, params.Size)
	}
	if params.Search != "algebra" || !params.ActiveOnly {
		t.Errorf("search/active = %q/%v, expected algebra with active filter", params.Search, params.ActiveOnly)
	}
	if params.InstructorID == nil || *params.InstructorID != "instructor-1" {
		t.Errorf("InstructorID = %v, expected instructor-1", params.InstructorID)
	}
	if params.SortBy != "title" || params.SortDir != "asc" {
		t.Errorf("sort = %s/%s, expected title asc", params.SortBy, params.SortDir)
	}

	filters := quizFilters(params)
	if filters.Limit != 10 || filters.Offset != 10 {
		t.Errorf("limit/offset = %d/%d, expected the second page of 10", filters.Limit, filters.Offset)
	}
	if filters.InstructorID == nil || *filters.InstructorID != "instructor-1" {
		t.Errorf("filter InstructorID = %v, expected instructor-1", filters.InstructorID)
	}
	if filters.SortBy != "title" || filters.SortOrder != "asc" {
		t.Errorf("filter sort = %s/%s, expected title asc", filters.SortBy, filters.SortOrder)
	}
}

func TestParseQuizParamsDefaults(t *testing.T) {
	c, _ := testContext(t, "/quizzes")

	params := parseQuizParams(c)
	if params.Page != 1 || params.Size != 20 {
		t.Errorf("page/size = %d/%d, expected 1/20", params.Page, params.Size)
	}
	if params.InstructorID != nil || params.ActiveOnly {
		t.Errorf("params = %+v, expected no instructor or active filter", params)
	}

	filters := quizFilters(params)
	if filters.Offset != 0 {
		t.Errorf("Offset = %d, expected the first page to start at 0", filters.Offset)
	}
	if filters.SortBy != "created_at" || filters.SortOrder != "desc" {
		t.Errorf("filter sort = %s/%s, expected created_at desc", filters.SortBy, filters.SortOrder)
	}
}
