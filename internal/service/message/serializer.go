package message

import (
	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/model"
)

// BuildPayloads serializes msgs with senders, attachments and reactions
// in three batched queries. viewerID fills my_reaction; zero leaves it null.
func BuildPayloads(repos *repository.Repositories, msgs []model.Message, viewerID uint) ([]respond.MessagePayload, error) {
	out := make([]respond.MessagePayload, 0, len(msgs))
	if len(msgs) == 0 {
		return out, nil
	}

	msgIDs := make([]uint, 0, len(msgs))
	senderIDs := make([]uint, 0, len(msgs))
	for i := range msgs {
		msgIDs = append(msgIDs, msgs[i].ID)
		if msgs[i].SenderID != nil {
			senderIDs = append(senderIDs, *msgs[i].SenderID)
		}
	}

	users, err := repos.User.FindByIDs(senderIDs)
	if err != nil {
		return nil, err
	}
	senders := make(map[uint]*respond.SenderRespond, len(users))
	for i := range users {
		u := &users[i]
		senders[u.ID] = &respond.SenderRespond{ID: u.ID, Name: u.DisplayName(), Role: u.Role}
	}

	attachments, err := repos.Message.AttachmentsOf(msgIDs)
	if err != nil {
		return nil, err
	}
	attByMsg := make(map[uint][]respond.AttachmentRespond)
	for _, a := range attachments {
		attByMsg[a.MessageID] = append(attByMsg[a.MessageID], respond.AttachmentRespond{
			ID: a.ID, URL: a.URL, Name: a.Name, Type: a.AttachmentType,
		})
	}

	reactions, err := repos.Reaction.ListByMessages(msgIDs)
	if err != nil {
		return nil, err
	}
	reactByMsg := make(map[uint][]model.MessageReaction)
	for _, r := range reactions {
		reactByMsg[r.MessageID] = append(reactByMsg[r.MessageID], r)
	}

	for i := range msgs {
		m := &msgs[i]
		p := respond.MessagePayload{
			ID:              m.ID,
			RoomID:          m.RoomID,
			Content:         m.Content,
			IsAI:            m.IsAI,
			CreatedAt:       m.CreatedAt,
			ParentMessageID: m.ParentMessageID,
			Attachments:     attByMsg[m.ID],
		}
		if p.Attachments == nil {
			p.Attachments = []respond.AttachmentRespond{}
		}
		if m.SenderID != nil {
			p.Sender = senders[*m.SenderID]
		}
		p.Reactions, p.MyReaction = summarize(reactByMsg[m.ID], viewerID)
		out = append(out, p)
	}
	return out, nil
}

// summarize groups reactions by kind. Both kinds are always present.
func summarize(reactions []model.MessageReaction, viewerID uint) (map[string]respond.ReactionSummary, *string) {
	summary := map[string]respond.ReactionSummary{
		model.ReactionLike:    {Users: []uint{}},
		model.ReactionDislike: {Users: []uint{}},
	}
	var mine *string
	for _, r := range reactions {
		s := summary[r.Reaction]
		s.Count++
		s.Users = append(s.Users, r.UserID)
		summary[r.Reaction] = s
		if viewerID != 0 && r.UserID == viewerID {
			kind := r.Reaction
			mine = &kind
		}
	}
	return summary, mine
}

func counts(reactions []model.MessageReaction) respond.ReactionCounts {
	var c respond.ReactionCounts
	for _, r := range reactions {
		switch r.Reaction {
		case model.ReactionLike:
			c.Like++
		case model.ReactionDislike:
			c.Dislike++
		}
	}
	return c
}
