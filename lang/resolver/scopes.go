package resolver

// buckStopsHereScope is the sentinel scope above the module: every lookup
// that escapes the module scope lands here and fails. Nothing is ever
// declared directly against it.
type buckStopsHereScope struct{}

func (*buckStopsHereScope) addDeclaration(sym DeclKind, _ *BindingState) (BindingKind, error) {
	return nil, &UnboundIdentifierError{Name: sym.Name}
}

func (*buckStopsHereScope) lookup(sym DeclKind) (BindingKind, error) {
	return nil, &UnboundIdentifierError{Name: sym.Name}
}

// moduleScope binds top-level declarations to module-global slots. Names
// are never renamed here: shadowing a module-level declaration inside a
// nested function or block is legal (it becomes an Argument, FunctionLocal
// or Upvar that happens to share a name), but two module-level
// declarations of the same name are just a last-write-wins rebinding.
type moduleScope struct {
	moduleID    string
	definitions map[string]bool
}

func (m *moduleScope) addDeclaration(sym DeclKind, _ *BindingState) (BindingKind, error) {
	m.definitions[sym.Name] = true
	return ModuleBinding{ModuleID: m.moduleID, Name: sym.Name}, nil
}

func (m *moduleScope) lookup(sym DeclKind) (BindingKind, error) {
	if m.definitions[sym.Name] {
		return ModuleBinding{ModuleID: m.moduleID, Name: sym.Name}, nil
	}
	return nil, &UnboundIdentifierError{Name: sym.Name}
}

// blockScope renames every declaration it introduces to a key tagged with
// a fresh generation id, then delegates the renamed declaration to its
// parent (ultimately a funcScope or moduleScope). This is what lets
// "let x = 1; { let x = 2; x } " see the inner x inside the block while
// leaving the outer x's slot untouched: the block's own definitions map
// is consulted first, and only a hit there is resolved through the
// renamed key.
type blockScope struct {
	parent      scope
	definitions map[DeclKind]DeclKind
}

func (b *blockScope) addDeclaration(sym DeclKind, bs *BindingState) (BindingKind, error) {
	renamed := DeclKind{GenID: bs.nextGenID(), Name: sym.Name}
	b.definitions[sym] = renamed
	return b.parent.addDeclaration(renamed, bs)
}

func (b *blockScope) lookup(sym DeclKind) (BindingKind, error) {
	if renamed, ok := b.definitions[sym]; ok {
		return b.parent.lookup(renamed)
	}
	return b.parent.lookup(sym)
}

// funcScope binds parameters, locals declared directly in the function
// body, and tracks upvars: names that resolve outside the function
// entirely. The first time such a name is seen it is assigned the next
// upvar slot and the enclosing scope's BindingKind is recorded so the
// emitter knows where to read the captured value from when building the
// function's continuation-free closure.
type funcScope struct {
	parent  scope
	name    string
	hasName bool

	params []DeclKind
	locals []DeclKind

	upvarOf   map[DeclKind]int
	upvarKeys []DeclKind
	upvarSrc  []BindingKind
}

func (f *funcScope) addDeclaration(sym DeclKind, _ *BindingState) (BindingKind, error) {
	idx := uint32(len(f.locals))
	f.locals = append(f.locals, sym)
	return FunctionLocal{Index: idx}, nil
}

func (f *funcScope) lookup(sym DeclKind) (BindingKind, error) {
	for i := len(f.params) - 1; i >= 0; i-- {
		if f.params[i] == sym {
			return Argument{Index: uint32(i)}, nil
		}
	}
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i] == sym {
			return FunctionLocal{Index: uint32(i)}, nil
		}
	}
	if idx, ok := f.upvarOf[sym]; ok {
		return Upvar{Index: uint32(idx)}, nil
	}
	if f.hasName && sym.GenID == 0 && sym.Name == f.name {
		return CurrentFunction{}, nil
	}

	bk, err := f.parent.lookup(sym)
	if err != nil {
		return nil, err
	}
	idx := len(f.upvarKeys)
	f.upvarOf[sym] = idx
	f.upvarKeys = append(f.upvarKeys, sym)
	f.upvarSrc = append(f.upvarSrc, bk)
	return Upvar{Index: uint32(idx)}, nil
}
