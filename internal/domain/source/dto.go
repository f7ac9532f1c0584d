package source

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Code is an identifier the remote API sends either as a JSON string or a JSON number.
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*c = Code(strconv.FormatInt(i, 10))
		return nil
	}
	*c = Code(n.String())
	return nil
}

func (c Code) String() string {
	return string(c)
}

// Transaction is one punch as returned by the transactions endpoint.
type Transaction struct {
	EmpCode   Code   `json:"emp_code"`
	PunchTime string `json:"punch_time"`
}

// AreaRef is an area entry embedded in an employee record.
type AreaRef struct {
	AreaCode Code `json:"area_code"`
	ID       Code `json:"id"`
}

// Key returns the area code, falling back to the numeric id.
func (a AreaRef) Key() Code {
	if a.AreaCode != "" {
		return a.AreaCode
	}
	return a.ID
}

type Employee struct {
	EmpCode   Code     `json:"emp_code"`
	FirstName string   `json:"first_name"`
	Areas     AreaRefs `json:"area"`
}

// AreaRefs decodes the employee area list. Any value other than a JSON array decodes to
// an empty list instead of failing the whole page.
type AreaRefs []AreaRef

func (a *AreaRefs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		*a = nil
		return nil
	}
	var refs []AreaRef
	if err := json.Unmarshal(data, &refs); err != nil {
		*a = nil
		return nil
	}
	*a = refs
	return nil
}

type Area struct {
	AreaCode Code   `json:"area_code"`
	ID       Code   `json:"id"`
	AreaName string `json:"area_name"`
	Name     string `json:"name"`
}

// Key returns the area code, falling back to the numeric id.
func (a Area) Key() Code {
	if a.AreaCode != "" {
		return a.AreaCode
	}
	return a.ID
}
