package cart

import "fmt"

// CommandKind enumerates every mutation the cart accepts.
type CommandKind string

const (
	CommandAddItem        CommandKind = "add_item"
	CommandRemoveItem     CommandKind = "remove_item"
	CommandUpdateQuantity CommandKind = "update_quantity"
	CommandOpen           CommandKind = "open"
	CommandClose          CommandKind = "close"
	CommandClear          CommandKind = "clear"
)

var validCommandKinds = map[CommandKind]struct{}{
	CommandAddItem:        {},
	CommandRemoveItem:     {},
	CommandUpdateQuantity: {},
	CommandOpen:           {},
	CommandClose:          {},
	CommandClear:          {},
}

// Command is a single cart mutation. Item is read by add, Key by remove and update,
// Quantity by add and update.
type Command struct {
	Kind     CommandKind
	Item     LineItemInput
	Key      Key
	Quantity int
}

// Validate rejects unknown command kinds.
func (c Command) Validate() error {
	if _, ok := validCommandKinds[c.Kind]; !ok {
		return fmt.Errorf("unknown cart command %q", c.Kind)
	}
	return nil
}

func AddItem(item LineItemInput, quantity int) Command {
	return Command{Kind: CommandAddItem, Item: item, Quantity: quantity}
}

func RemoveItem(key Key) Command {
	return Command{Kind: CommandRemoveItem, Key: key}
}

func UpdateQuantity(key Key, quantity int) Command {
	return Command{Kind: CommandUpdateQuantity, Key: key, Quantity: quantity}
}

func Open() Command  { return Command{Kind: CommandOpen} }
func Close() Command { return Command{Kind: CommandClose} }
func Clear() Command { return Command{Kind: CommandClear} }

// Reduce applies cmd to state and returns the next state. It never mutates its
// input and unknown kinds return an unchanged copy.
func Reduce(state State, cmd Command) State {
	next := state.Clone()

	switch cmd.Kind {
	case CommandAddItem:
		quantity := cmd.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		key := cmd.Item.Key()
		merged := false
		for i := range next.Items {
			if next.Items[i].Key() == key {
				next.Items[i].Quantity += quantity
				merged = true
				break
			}
		}
		if !merged {
			next.Items = append(next.Items, newLineItem(cmd.Item, quantity))
		}
		next.IsOpen = true

	case CommandRemoveItem:
		next.Items = removeKey(next.Items, cmd.Key)

	case CommandUpdateQuantity:
		if cmd.Quantity <= 0 {
			next.Items = removeKey(next.Items, cmd.Key)
			break
		}
		for i := range next.Items {
			if next.Items[i].Key() == cmd.Key {
				next.Items[i].Quantity = cmd.Quantity
				break
			}
		}

	case CommandOpen:
		next.IsOpen = true

	case CommandClose:
		next.IsOpen = false

	case CommandClear:
		next.Items = []LineItem{}
		next.IsOpen = false
	}

	return next
}

func removeKey(items []LineItem, key Key) []LineItem {
	out := items[:0]
	for _, item := range items {
		if item.Key() != key {
			out = append(out, item)
		}
	}
	return out
}
