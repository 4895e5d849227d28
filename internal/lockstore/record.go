package lockstore

import "sort"

// LockRecord is the desired state and bookkeeping for one target.
//
// The JSON keys match the groupData.json files written by earlier
// deployments so existing stores load unchanged.
type LockRecord struct {
	Enabled           bool              `json:"enabled"`
	Nickname          string            `json:"nick"`
	NicknameOverrides map[string]string `json:"original"`
	TitleLockEnabled  bool              `json:"gclock"`
	LockedTitle       string            `json:"groupName,omitempty"`
	ChangeCount       int               `json:"count"`
	CooldownActive    bool              `json:"cooldown"`
}

// DesiredNickname returns the nickname member should carry: its override
// when one is set, the record's nickname otherwise. An empty override
// counts as unset.
func (r *LockRecord) DesiredNickname(member string) string {
	if nick := r.NicknameOverrides[member]; nick != "" {
		return nick
	}
	return r.Nickname
}

// Clone returns a deep copy.
func (r *LockRecord) Clone() *LockRecord {
	c := *r
	c.NicknameOverrides = make(map[string]string, len(r.NicknameOverrides))
	for k, v := range r.NicknameOverrides {
		c.NicknameOverrides[k] = v
	}
	return &c
}

// Records maps target IDs to their lock records.
type Records map[string]*LockRecord

// Targets returns the target IDs in sorted order.
func (r Records) Targets() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of every record.
func (r Records) Clone() Records {
	out := make(Records, len(r))
	for id, rec := range r {
		out[id] = rec.Clone()
	}
	return out
}
