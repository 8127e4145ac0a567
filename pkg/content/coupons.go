package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/telegram"
)

const accumulatorLegs = 3

// CouponsGenerator posts a bookmaker coupon plus an accumulator built from
// the day's top tips. Either part alone is enough for a post.
type CouponsGenerator struct{ *Deps }

func (g *CouponsGenerator) Type() string { return TypeCoupons }

func (g *CouponsGenerator) Generate(ctx context.Context, req Request) (*Content, error) {
	day := req.Now.In(g.location(req)).Format("2006-01-02")

	var coupon *database.Coupon
	var keys []string
	if g.Coupons != nil {
		coupons, err := g.Coupons.ListActiveCoupons(ctx, req.Now)
		if err != nil {
			return nil, fmt.Errorf("failed to load coupons: %w", err)
		}
		for i := range coupons {
			key := fmt.Sprintf("coupon:%d:%s", coupons[i].ID, day)
			if g.unused(ctx, req, TypeCoupons, key) {
				coupon = &coupons[i]
				keys = append(keys, key)
				break
			}
		}
	}

	var legs []Tip
	if g.Matches != nil {
		tips, _, err := g.tips(ctx, req, TypeCoupons, accumulatorLegs)
		if err != nil {
			g.Logger.Warn().Err(err).Str("action", "accumulator_skipped").Msg("No fixtures for accumulator")
		}
		for _, t := range tips {
			if t.Odd > 1 {
				legs = append(legs, t)
			}
		}
		if len(legs) >= 2 {
			ids := make([]string, len(legs))
			for i, l := range legs {
				ids[i] = strconv.Itoa(l.Fixture.ID())
			}
			accaKey := "acca:" + day + ":" + strings.Join(ids, "-")
			if g.unused(ctx, req, TypeCoupons, accaKey) {
				keys = append(keys, accaKey)
			} else {
				legs = nil
			}
		} else {
			legs = nil
		}
	}

	if coupon == nil && len(legs) == 0 {
		return nil, ErrNoContent
	}

	c := &Content{
		Type:  TypeCoupons,
		Title: "Coupon of the day",
		Keys:  keys,
	}
	if coupon != nil {
		c.Title = coupon.Title
		if coupon.AffiliateURL != nil {
			c.Link = *coupon.AffiliateURL
		}
	}
	c.Text = renderCoupon(coupon, legs)
	c.ImageURL = g.image(ctx, req, "", "Betting slip on a table next to a football, stadium lights in background, no text")

	g.localize(ctx, req, c)
	return c, nil
}

// AccumulatorOdds multiplies the legs' odds.
func AccumulatorOdds(legs []Tip) float64 {
	if len(legs) == 0 {
		return 0
	}
	total := 1.0
	for _, l := range legs {
		total *= l.Odd
	}
	return total
}

func renderCoupon(coupon *database.Coupon, legs []Tip) string {
	var b strings.Builder
	if coupon != nil {
		b.WriteString("🎟 ")
		b.WriteString(telegram.Bold(coupon.Title))
		b.WriteString("\n🏦 ")
		b.WriteString(telegram.EscapeHTML(coupon.Bookmaker))
		if coupon.Code != "" {
			b.WriteString(" · Code: <code>")
			b.WriteString(telegram.EscapeHTML(coupon.Code))
			b.WriteString("</code>")
		}
		if coupon.Description != nil && *coupon.Description != "" {
			b.WriteString("\n")
			b.WriteString(telegram.EscapeHTML(*coupon.Description))
		}
		if coupon.TotalOdds != nil && *coupon.TotalOdds > 0 {
			fmt.Fprintf(&b, "\n📈 Total odds: %.2f", *coupon.TotalOdds)
		}
		if coupon.AffiliateURL != nil && *coupon.AffiliateURL != "" {
			b.WriteString("\n👉 ")
			b.WriteString(telegram.Link("Claim the offer", *coupon.AffiliateURL))
		}
		if coupon.ExpiresAt != nil {
			b.WriteString("\n⏳ Valid until ")
			b.WriteString(coupon.ExpiresAt.UTC().Format("2 Jan 15:04 MST"))
		}
	}

	if len(legs) > 0 {
		if coupon != nil {
			b.WriteString("\n\n")
		}
		b.WriteString("🧩 <b>Accumulator of the day</b>\n")
		for i, l := range legs {
			fmt.Fprintf(&b, "%d. %s: %s @ %.2f\n", i+1,
				telegram.EscapeHTML(l.Fixture.Title()), telegram.EscapeHTML(l.Pick), l.Odd)
		}
		fmt.Fprintf(&b, "💰 Combined odds: %.2f", AccumulatorOdds(legs))
	}

	b.WriteString("\n\n")
	b.WriteString(responsibleGambling)
	return b.String()
}
