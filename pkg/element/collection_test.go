package element

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/driver/mock"
	"github.com/devicelab-dev/locus/pkg/locator"
	"github.com/devicelab-dev/locus/pkg/slot"
)

func listItem(id, text string) *mock.Node {
	return mock.NewNode(id).MatchedBy("css=.item").WithText(text)
}

func listFixture(t *testing.T, policy *slot.Policy, opts ...Option) (*Collection, *mock.Driver, *mock.Node) {
	t.Helper()
	root := mock.NewNode("root").Add(
		listItem("item-a", "A"),
		listItem("item-b", "B"),
		listItem("item-c", "C"),
	)
	sess, drv := newFixture(root)
	col, err := DeclareCollection(sess, locator.CSS(".item"), policy, opts...)
	require.NoError(t, err)
	return col, drv, root
}

type rowWrapper struct {
	kind   string
	handle *Handle
}

func rowTarget(kind string) slot.Target {
	return slot.Target{Name: kind, New: func(el interface{}) interface{} {
		return &rowWrapper{kind: kind, handle: el.(*Handle)}
	}}
}

func TestCollection_Len(t *testing.T) {
	col, _, _ := listFixture(t, nil)
	n, err := col.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCollection_LenEmptyIsNotAnError(t *testing.T) {
	root := mock.NewNode("root")
	sess, _ := newFixture(root)
	col, err := DeclareCollection(sess, locator.CSS(".item"), nil)
	require.NoError(t, err)

	n, err := col.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuery_FirstMatchInDocumentOrder(t *testing.T) {
	col, _, root := listFixture(t, nil)
	root.Add(listItem("item-b2", "B"))

	h, err := col.Query(`text == "B"`)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "item-b", h.Node().Ref())

	text, err := h.Text()
	require.NoError(t, err)
	assert.Equal(t, "B", text)
}

func TestQuery_NoMatchReturnsNil(t *testing.T) {
	col, _, _ := listFixture(t, nil)
	h, err := col.Query(`text == "Z"`)
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestQuery_SyntaxErrorSurfacesImmediately(t *testing.T) {
	col, drv, _ := listFixture(t, nil)
	_, err := col.Query(`text == `)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrQuerySyntax))
	assert.Empty(t, drv.Finds)
}

func TestQuery_DeclaredChildField(t *testing.T) {
	price := func(id, text string) *mock.Node {
		return mock.NewNode(id).MatchedBy("css=.price").WithText(text)
	}
	root := mock.NewNode("root").Add(
		listItem("item-a", "Widget").Add(price("price-a", "4.50")),
		listItem("item-b", "Gadget").Add(price("price-b", "9.99")),
	)
	sess, _ := newFixture(root)
	col, err := DeclareCollection(sess, locator.CSS(".item"), nil, WithChildren(map[string]Child{
		"price": {Tree: locator.CSS(".price")},
	}))
	require.NoError(t, err)

	h, err := col.Query(`price == "9.99"`)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "item-b", h.Node().Ref())
}

func TestQuery_HandleRecoversByReRunningQuery(t *testing.T) {
	col, _, root := listFixture(t, nil)

	h, err := col.Query(`text == "B"`)
	require.NoError(t, err)
	require.NotNil(t, h)

	var old *mock.Node
	for _, c := range root.Children {
		if c.ID == "item-b" {
			old = c
		}
	}
	require.NotNil(t, old)
	old.Invalidate()
	root.Add(listItem("item-b-new", "B"))

	text, err := h.Text()
	require.NoError(t, err)
	assert.Equal(t, "B", text)
	assert.Equal(t, "item-b-new", h.Node().Ref())
}

func TestSlot_LastMatchingRuleWins(t *testing.T) {
	policy := slot.NewPolicy(
		slot.All(rowTarget("row")),
		slot.AtIndex(-1, rowTarget("footer")),
	)
	col, _, _ := listFixture(t, policy)

	for i, want := range []string{"row", "row", "footer"} {
		w, err := col.Slot(i, "")
		require.NoError(t, err)
		assert.Equal(t, want, w.(*rowWrapper).kind, "slot %d", i)
	}
}

func TestSlot_ForKeyRule(t *testing.T) {
	policy := slot.NewPolicy(slot.ForKey("header", rowTarget("header")))
	col, _, _ := listFixture(t, policy)

	w, err := col.Slot(0, "header")
	require.NoError(t, err)
	assert.Equal(t, "header", w.(*rowWrapper).kind)

	// No key, no rule match: the plain element target applies.
	plain, err := col.Slot(1, "")
	require.NoError(t, err)
	_, isHandle := plain.(*Handle)
	assert.True(t, isHandle)
}

func TestSlot_WhenRule(t *testing.T) {
	special, err := slot.When(`text == "B"`, rowTarget("special"))
	require.NoError(t, err)
	col, _, _ := listFixture(t, slot.NewPolicy(slot.All(rowTarget("row")), special))

	w, err := col.Slot(1, "")
	require.NoError(t, err)
	assert.Equal(t, "special", w.(*rowWrapper).kind)

	w, err = col.Slot(0, "")
	require.NoError(t, err)
	assert.Equal(t, "row", w.(*rowWrapper).kind)
}

func TestSlot_CachedUntilRefresh(t *testing.T) {
	col, _, _ := listFixture(t, slot.NewPolicy(slot.All(rowTarget("row"))))

	w1, err := col.Slot(0, "")
	require.NoError(t, err)
	w2, err := col.Slot(0, "")
	require.NoError(t, err)
	assert.Same(t, w1, w2)

	col.Refresh()
	w3, err := col.Slot(0, "")
	require.NoError(t, err)
	assert.NotSame(t, w1, w3)
}

func TestSlot_OutOfRange(t *testing.T) {
	col, _, _ := listFixture(t, nil)
	_, err := col.Slot(7, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoSuchElement))
}

func TestSlot_HandleRecoversAtSameIndex(t *testing.T) {
	col, _, root := listFixture(t, nil)

	w, err := col.Slot(1, "")
	require.NoError(t, err)
	h := w.(*Handle)
	require.Equal(t, "item-b", h.Node().Ref())

	for _, c := range root.Children {
		c.Invalidate()
	}
	root.Add(listItem("item-x", "X"), listItem("item-y", "Y"))

	text, err := h.Text()
	require.NoError(t, err)
	assert.Equal(t, "Y", text)
	assert.Equal(t, "item-y", h.Node().Ref())
}
