package httpapi

import (
	"github.com/radieske/fight-ledger/internal/cashier"
	"github.com/radieske/fight-ledger/internal/fight"
	"github.com/radieske/fight-ledger/internal/fight-service/dto"
	"github.com/radieske/fight-ledger/internal/partial"
	"github.com/radieske/fight-ledger/internal/reconcile"
	"github.com/radieske/fight-ledger/internal/settlement"
	"github.com/radieske/fight-ledger/internal/shared/money"
	"github.com/radieske/fight-ledger/internal/store"
)

func toEvent(e store.GameEvent) dto.EventResponse {
	return dto.EventResponse{
		ID:        e.ID,
		Name:      e.Name,
		Location:  e.Location,
		EventDate: e.EventDate,
		Status:    string(e.Status),
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
	}
}

func (s *Server) toFight(f store.Fight) dto.FightResponse {
	q := s.fights.Quote(f)
	return dto.FightResponse{
		ID:              f.ID,
		EventID:         f.EventID,
		FightNumber:     f.FightNumber,
		Status:          string(f.Status),
		Winner:          string(f.Winner),
		Meron:           money.Format(f.MeronPool),
		Wala:            money.Format(f.WalaPool),
		PercentageMeron: q.Meron.StringFixed(2),
		PercentageWala:  q.Wala.StringFixed(2),
		StartTime:       f.StartTime,
		EndTime:         f.EndTime,
		SettledAt:       f.SettledAt,
	}
}

func toSettlement(sum settlement.Summary) dto.SettlementResponse {
	return dto.SettlementResponse{
		Winner:      string(sum.Winner),
		Processed:   sum.Processed,
		Won:         sum.Won,
		Lost:        sum.Lost,
		Void:        sum.Void,
		TotalPayout: money.Format(sum.TotalPayout),
	}
}

func (s *Server) toResolution(res fight.Resolution) dto.ResolutionResponse {
	out := dto.ResolutionResponse{Fight: s.toFight(res.Fight), Settlement: toSettlement(res.Summary)}
	if res.Next.ID != "" {
		next := s.toFight(res.Next)
		out.Next = &next
	}
	return out
}

func toPartial(fightNo int, st partial.State) dto.PartialStateResponse {
	return dto.PartialStateResponse{FightNumber: fightNo, Meron: st.Meron, Wala: st.Wala}
}

func toBet(b store.Bet) dto.BetResponse {
	return dto.BetResponse{
		ID:        b.ID,
		FightID:   b.FightID,
		UserID:    b.UserID,
		TellerNo:  b.TellerNo,
		Side:      string(b.Side),
		Amount:    money.Format(b.Amount),
		Odds:      b.Odds.StringFixed(2),
		Payout:    money.Format(b.Payout),
		Status:    string(b.Status),
		Settled:   b.Settled,
		CreatedAt: b.CreatedAt,
	}
}

func toBets(bs []store.Bet) []dto.BetResponse {
	out := make([]dto.BetResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBet(b))
	}
	return out
}

func toMovement(m store.CashMovement) dto.MovementResponse {
	out := dto.MovementResponse{
		ID:        m.ID,
		EventID:   m.EventID,
		TellerID:  m.TellerID,
		TellerNo:  m.TellerNo,
		RunnerID:  m.RunnerID,
		Kind:      string(m.Kind),
		Status:    string(m.Status),
		Amount:    money.Format(m.Amount),
		CreatedAt: m.CreatedAt,
	}
	if m.OnHand.Valid {
		v := m.OnHand.Decimal.StringFixed(money.Places)
		out.OnHand = &v
	}
	return out
}

func toStats(st cashier.Stats) dto.RunnerStatsResponse {
	return dto.RunnerStatsResponse{
		RunnerID:   st.RunnerID,
		TotalTopup: money.Format(st.TotalTopup),
		TotalRemit: money.Format(st.TotalRemit),
		Pending:    st.Pending,
		Processing: st.Processing,
		Completed:  st.Completed,
		Voided:     st.Voided,
		Total:      st.Total,
	}
}

func toPosition(p reconcile.Position) dto.PositionResponse {
	return dto.PositionResponse{
		EventID:     p.EventID,
		TellerNo:    p.TellerNo,
		Cutoff:      p.Cutoff,
		Staked:      money.Format(p.Staked),
		PaidOut:     money.Format(p.PaidOut),
		Deposits:    money.Format(p.Deposits),
		Withdrawals: money.Format(p.Withdrawals),
		OnHand:      p.OnHand.StringFixed(money.Places),
		Sign:        string(p.Sign),
	}
}
