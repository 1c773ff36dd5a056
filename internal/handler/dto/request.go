package dto

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/mtlprog/taskindexer/internal/query"
)

// ParsePage reads ?first=, ?skip= and ?orderDirection=.
func ParsePage(q url.Values) (query.PageParams, error) {
	var p query.PageParams
	var err error

	if v := q.Get("first"); v != "" {
		if p.First, err = strconv.Atoi(v); err != nil {
			return p, errors.New("first must be an integer")
		}
	}
	if v := q.Get("skip"); v != "" {
		if p.Skip, err = strconv.Atoi(v); err != nil {
			return p, errors.New("skip must be an integer")
		}
	}
	p.Direction = q.Get("orderDirection")
	return p, nil
}

// ParseList splits a repeatable, comma-separated parameter:
// ?status=Open,InProgress or ?status=Open&status=InProgress.
func ParseList(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseTaskQuery reads the filters of GET /tasks.
func ParseTaskQuery(q url.Values) (query.TaskQuery, error) {
	page, err := ParsePage(q)
	if err != nil {
		return query.TaskQuery{}, err
	}
	return query.TaskQuery{
		Kind:       q.Get("kind"),
		Statuses:   ParseList(q, "status"),
		Creator:    q.Get("creator"),
		Worker:     q.Get("worker"),
		PageParams: page,
	}, nil
}

// ParseDisputeQuery reads the filters of GET /disputes.
func ParseDisputeQuery(q url.Values) (query.DisputeQuery, error) {
	page, err := ParsePage(q)
	if err != nil {
		return query.DisputeQuery{}, err
	}
	return query.DisputeQuery{
		Statuses:    ParseList(q, "status"),
		Worker:      q.Get("worker"),
		TaskCreator: q.Get("creator"),
		PageParams:  page,
	}, nil
}
