package bridge

import (
	"github.com/giantswarm/locksmith/internal/credential"
	"github.com/giantswarm/locksmith/internal/remote"
)

type loginRequest struct {
	AppState credential.Blob `json:"appState"`
}

type loginResponse struct {
	UserID string `json:"userId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type nicknameRequest struct {
	Nickname      string `json:"nickname"`
	ParticipantID string `json:"participantId"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type userInfo struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

type threadResponse struct {
	ThreadID       string            `json:"threadID"`
	ThreadName     string            `json:"threadName"`
	ParticipantIDs []string          `json:"participantIDs"`
	Nicknames      map[string]string `json:"nicknames"`
	UserInfo       []userInfo        `json:"userInfo"`
}

// toThreadInfo normalizes a thread response. Participants fall back to the
// userInfo list when participantIDs is absent, and so do nicknames.
func (r threadResponse) toThreadInfo(threadID string) *remote.ThreadInfo {
	info := &remote.ThreadInfo{
		ThreadID:  threadID,
		Title:     r.ThreadName,
		Nicknames: make(map[string]string),
	}

	ids := r.ParticipantIDs
	if len(ids) == 0 {
		for _, u := range r.UserInfo {
			ids = append(ids, u.ID)
		}
	}
	for _, id := range ids {
		if id != "" {
			info.Participants = append(info.Participants, id)
		}
	}

	for _, u := range r.UserInfo {
		if u.ID != "" && u.Nickname != "" {
			info.Nicknames[u.ID] = u.Nickname
		}
	}
	for id, nick := range r.Nicknames {
		if nick != "" {
			info.Nicknames[id] = nick
		}
	}
	return info
}

type addedParticipant struct {
	UserFbID string `json:"userFbId"`
}

type wireEvent struct {
	Type           string `json:"type"`
	LogMessageType string `json:"logMessageType"`
	ThreadID       string `json:"threadID"`
	Author         string `json:"author"`
	SenderID       string `json:"senderID"`
	LogMessageData struct {
		Name              string             `json:"name"`
		ParticipantID     string             `json:"participant_id"`
		Nickname          string             `json:"nickname"`
		AddedParticipants []addedParticipant `json:"addedParticipants"`
	} `json:"logMessageData"`
}

// toEvent converts a stream message. Messages the agent does not act on
// yield ok == false.
func (w wireEvent) toEvent() (remote.Event, bool) {
	ev := remote.Event{
		Type:     remote.EventType(w.LogMessageType),
		ThreadID: w.ThreadID,
		AuthorID: w.Author,
	}
	if ev.AuthorID == "" {
		ev.AuthorID = w.SenderID
	}
	if ev.ThreadID == "" {
		return remote.Event{}, false
	}

	switch ev.Type {
	case remote.EventNicknameChanged:
		ev.MemberID = w.LogMessageData.ParticipantID
		ev.Nickname = w.LogMessageData.Nickname
		return ev, ev.MemberID != ""
	case remote.EventTitleChanged:
		ev.Title = w.LogMessageData.Name
		return ev, true
	case remote.EventMembersAdded, remote.EventThreadCreated:
		for _, p := range w.LogMessageData.AddedParticipants {
			if p.UserFbID != "" {
				ev.AddedIDs = append(ev.AddedIDs, p.UserFbID)
			}
		}
		return ev, true
	default:
		return remote.Event{}, false
	}
}
